package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type VerifyTOTPInput struct {
	Email  string `json:"email" validate:"required,email"`
	Code   string `json:"code" validate:"required,otp"`
	Client ClientInfo
}

// VerifyTOTP logs in with an authenticator code.
func (s *Usecase) VerifyTOTP(ctx context.Context, in VerifyTOTPInput) (*Session, error) {
	ctx, span := s.startSpan(ctx, "VerifyTOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.userLookupError(ctx, email, err, goerror.NewBusiness("User not found", goerror.CodeNotFound))
	}

	if err := s.checkTOTP(ctx, user, in.Code); err != nil {
		return nil, err
	}

	if !user.IsActive {
		slog.WarnContext(ctx, "user account is inactive", "email", email)
		return nil, errUserInactive
	}

	return s.completeLogin(ctx, *user, entity.LoginMethodTOTP, in.Client)
}
