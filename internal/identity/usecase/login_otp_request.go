package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type RequestLoginOTPInput struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestLoginOTP mails a login code to an existing active account.
func (s *Usecase) RequestLoginOTP(ctx context.Context, in RequestLoginOTPInput) error {
	ctx, span := s.startSpan(ctx, "RequestLoginOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err != nil {
		return s.userLookupError(ctx, email, err, errUserNotFound)
	}

	if !user.IsActive {
		slog.WarnContext(ctx, "login otp requested for inactive account", "email", email)
		return errUserInactive
	}

	return s.withResendCooldown(ctx, email, entity.OTPPurposeLogin, func() error {
		return s.issueOTP(ctx, email, user.Name, entity.OTPPurposeLogin)
	})
}
