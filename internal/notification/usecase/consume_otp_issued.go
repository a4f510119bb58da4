package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/notification/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/mail"
	"github.com/shandysiswandi/portalauth/internal/pkg/valueobject"
)

type ConsumeOTPIssuedInput struct {
	Email      string `validate:"required,email"`
	Name       string `validate:"max=150"`
	Code       string `validate:"required,otp"`
	Purpose    string `validate:"required,oneof=signup login reset_password"`
	TTLMinutes int    `validate:"gt=0"`
}

// ConsumeOTPIssued emails a one-time code. Invalid events and delivery
// failures are logged and acknowledged; the user can always request a new
// code.
func (s *Usecase) ConsumeOTPIssued(ctx context.Context, in ConsumeOTPIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "email", in.Email, "purpose", in.Purpose, "error", err)
		return nil
	}

	purpose := entity.Purpose(in.Purpose)
	now := s.clock.Now()

	text, html, err := s.templates[purpose].render(templateData{
		Name:       in.Name,
		Code:       in.Code,
		TTLMinutes: in.TTLMinutes,
		Company:    s.cfg.GetString("modules.notification.mail.company_name"),
		Year:       now.Format("2006"),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "email", in.Email, "purpose", in.Purpose, "error", err)
		return nil
	}

	subject := s.templates[purpose].subject
	logID := s.uid.Generate()
	logged := true
	if err := s.repoDB.CreateDeliveryLog(ctx, entity.DeliveryLog{
		ID:            logID,
		Channel:       entity.ChannelEmail,
		Recipient:     in.Email,
		Subject:       subject,
		Purpose:       purpose,
		Status:        entity.DeliveryStatusQueued,
		Metadata:      valueobject.JSONMap{"name": in.Name, "ttl_minutes": in.TTLMinutes},
		CorrelationID: instrument.GetCorrelationID(ctx),
		CreatedAt:     now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create delivery log", "email", in.Email, "error", err)
		logged = false
	}

	attempts, mailErr := s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.Email},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	})

	up := entity.UpdateDeliveryLog{
		ID:        logID,
		Status:    entity.DeliveryStatusSent,
		Attempts:  attempts,
		UpdatedAt: s.clock.Now(),
	}
	if mailErr != nil {
		up.Status = entity.DeliveryStatusFailed
		up.Error = mailErr.Error()
	}
	if logged {
		if err := s.repoDB.UpdateDeliveryLog(ctx, up); err != nil {
			slog.ErrorContext(ctx, "failed to repo update delivery log", "log_id", logID, "error", err)
		}
	}

	if mailErr != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "log_id", logID, "email", in.Email,
			"purpose", in.Purpose, "attempts", attempts, "error", mailErr)
		return nil
	}

	slog.InfoContext(ctx, "otp email sent", "log_id", logID, "email", in.Email, "purpose", in.Purpose, "attempts", attempts)
	return nil
}
