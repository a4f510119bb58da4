package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type SetPasswordInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

// SetPassword turns a verified pending registration into an account and
// opens its first session.
func (s *Usecase) SetPassword(ctx context.Context, in SetPasswordInput) (*Session, error) {
	ctx, span := s.startSpan(ctx, "SetPassword")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	if !entity.EmailInDomain(email, s.allowedDomain()) {
		slog.WarnContext(ctx, "set password email outside allowed domain", "email", email)
		return nil, goerror.NewInvalidInput(nil, "email", "Only @"+s.allowedDomain()+" emails are allowed.")
	}

	pending, err := s.repoDB.GetPendingUser(ctx, email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get pending user", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if pending == nil || !pending.OTPVerified {
		slog.WarnContext(ctx, "set password before otp verification", "email", email)
		return nil, errOTPNotVerified
	}

	if err := s.ensureNotRegistered(ctx, email); err != nil {
		return nil, err
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	user := entity.User{
		ID:           s.uid.Generate(),
		Email:        email,
		Name:         pending.Name,
		PasswordHash: string(passHash),
		IsActive:     true,
		DateJoined:   now,
		UpdatedAt:    now,
	}

	sess, row, err := s.mintSession(ctx, user)
	if err != nil {
		return nil, err
	}

	err = s.repoDB.CreateAccount(ctx, entity.NewAccount{User: user, Session: row})
	switch {
	case errors.Is(err, goerror.ErrNotFound):
		slog.WarnContext(ctx, "pending registration vanished before account creation", "email", email)
		return nil, errOTPNotVerified
	case errors.Is(err, goerror.ErrConflict):
		slog.WarnContext(ctx, "account created concurrently", "email", email)
		return nil, goerror.NewBusiness("User already registered. Please login.", goerror.CodeConflict)
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo create account", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "account created", "email", email, "user_id", user.ID)
	return sess, nil
}
