package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type ProvisionSuperuserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=150"`
	Password string `json:"password" validate:"required,password"`
}

// ProvisionSuperuser creates a staff superuser directly, without a pending
// registration or the domain restriction. An existing account is left as
// it is.
func (s *Usecase) ProvisionSuperuser(ctx context.Context, in ProvisionSuperuserInput) error {
	ctx, span := s.startSpan(ctx, "ProvisionSuperuser")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	email := entity.NormalizeEmail(in.Email)
	_, err := s.repoDB.GetUserByEmail(ctx, email)
	if err == nil {
		slog.InfoContext(ctx, "superuser already provisioned", "email", email)
		return nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	passHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	now := s.clock.Now()
	err = s.repoDB.CreateSuperuser(ctx, entity.User{
		ID:           s.uid.Generate(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: string(passHash),
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		DateJoined:   now,
		UpdatedAt:    now,
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.InfoContext(ctx, "superuser provisioned concurrently", "email", email)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create superuser", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "superuser provisioned", "email", email)
	return nil
}
