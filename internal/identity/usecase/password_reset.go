package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"omitempty,otp"`
	Password string `json:"password" validate:"omitempty,password"`
}

// PasswordResetStep is the stage a PasswordReset call completed.
type PasswordResetStep int

const (
	PasswordResetOTPSent PasswordResetStep = iota + 1
	PasswordResetOTPVerified
	PasswordResetDone
)

// PasswordReset drives the three reset stages from the fields present:
// email alone sends a code, email and code verify it, and email, code and
// password replace the password.
func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) (PasswordResetStep, error) {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return 0, goerror.NewInvalidInput(err)
	}

	if in.Password != "" && in.OTP == "" {
		return 0, goerror.NewInvalidInput(nil, "otp", "OTP is required to reset the password.")
	}

	email := entity.NormalizeEmail(in.Email)
	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, s.userLookupError(ctx, email, err, goerror.NewBusiness("User not found", goerror.CodeNotFound))
	}

	switch {
	case in.OTP == "":
		if err := s.withResendCooldown(ctx, email, entity.OTPPurposeResetPassword, func() error {
			return s.issueOTP(ctx, email, user.Name, entity.OTPPurposeResetPassword)
		}); err != nil {
			return 0, err
		}
		return PasswordResetOTPSent, nil

	case in.Password == "":
		if err := s.consumeOTP(ctx, email, in.OTP, entity.OTPPurposeResetPassword, false); err != nil {
			return 0, err
		}
		return PasswordResetOTPVerified, nil
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "email", email, "error", err)
		return 0, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(in.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return 0, goerror.NewServer(err)
	}

	now := s.clock.Now()
	err = s.repoDB.ResetPassword(ctx, entity.ResetPassword{
		UserID:       user.ID,
		Email:        email,
		CodeHash:     string(codeHash),
		NotBefore:    now.Add(-s.otpTTL()),
		Now:          now,
		PasswordHash: string(passHash),
	})
	if err != nil {
		return 0, s.otpError(ctx, email, entity.OTPPurposeResetPassword, err)
	}

	slog.InfoContext(ctx, "password reset", "email", email)
	return PasswordResetDone, nil
}
