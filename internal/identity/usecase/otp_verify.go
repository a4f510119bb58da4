package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// VerifyOTP confirms the signup code of a pending registration.
func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	if _, err := s.repoDB.GetPendingUser(ctx, email); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "pending registration not found", "email", email)
			return goerror.NewBusiness("User not found. Please sign up.", goerror.CodeNotFound)
		}
		slog.ErrorContext(ctx, "failed to repo get pending user", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return err
	}

	return s.consumeOTP(ctx, email, in.OTP, entity.OTPPurposeSignup, true)
}

func (s *Usecase) ensureNotRegistered(ctx context.Context, email string) error {
	_, err := s.repoDB.GetUserByEmail(ctx, email)
	if err == nil {
		slog.WarnContext(ctx, "account already registered", "email", email)
		return goerror.NewBusiness("User already registered. Please login.", goerror.CodeConflict)
	}
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
	return goerror.NewServer(err)
}
