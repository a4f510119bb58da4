package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type SignupInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,min=1,max=150"`
}

// Signup starts (or restarts) a registration and mails a signup code.
func (s *Usecase) Signup(ctx context.Context, in SignupInput) error {
	ctx, span := s.startSpan(ctx, "Signup")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	if !entity.EmailInDomain(email, s.allowedDomain()) {
		slog.WarnContext(ctx, "signup email outside allowed domain", "email", email)
		return goerror.NewInvalidInput(nil, "email", "Only @"+s.allowedDomain()+" emails are allowed.")
	}

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return err
	}

	return s.withResendCooldown(ctx, email, entity.OTPPurposeSignup, func() error {
		if err := s.repoDB.SavePendingUser(ctx, entity.PendingUser{
			Email:     email,
			Name:      in.Name,
			CreatedAt: s.clock.Now(),
		}); err != nil {
			slog.ErrorContext(ctx, "failed to repo save pending user", "email", email, "error", err)
			return goerror.NewServer(err)
		}

		return s.issueOTP(ctx, email, in.Name, entity.OTPPurposeSignup)
	})
}
