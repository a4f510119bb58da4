package mail

import (
	"context"
	"log/slog"
)

// Log is a Mail that writes messages to the default logger instead of
// delivering them.
type Log struct{}

// NewLog returns a Log mailer.
func NewLog() *Log {
	return &Log{}
}

func (*Log) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrSMTPNoRecipients
	}

	slog.InfoContext(ctx, "mail not delivered, smtp disabled",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}

func (*Log) Close() error {
	return nil
}
