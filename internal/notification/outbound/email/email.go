package email

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RetryPolicy bounds redelivery of a failed send.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	policy RetryPolicy
}

func New(client mail.Mail, ins instrument.Instrumentation, policy RetryPolicy) *Mail {
	if policy.Base <= 0 {
		policy.Base = 500 * time.Millisecond
	}
	return &Mail{client: client, ins: ins, policy: policy}
}

// Send delivers msg, retrying with exponential backoff, and reports how
// many attempts were made.
func (m *Mail) Send(ctx context.Context, msg mail.Message) (int, error) {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "Send")
	defer span.End()

	backoff := retry.WithMaxRetries(m.policy.MaxRetries, retry.NewExponential(m.policy.Base))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := m.client.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	span.SetAttributes(attribute.Int("mail.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return attempts, err
	}

	return attempts, nil
}
