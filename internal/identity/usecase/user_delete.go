package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

type DeleteUserInput struct {
	Email string `json:"email" validate:"required,email"`
}

// DeleteUser removes an account after revoking all of its sessions.
func (s *Usecase) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	ctx, span := s.startSpan(ctx, "DeleteUser")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, entity.PermObjUsers, entity.PermActDelete)
	if err != nil {
		return err
	}

	email := entity.NormalizeEmail(in.Email)
	if email == clm.Email {
		slog.WarnContext(ctx, "user tried to delete own account", "email", email)
		return goerror.NewBusiness("You cannot delete your own account", goerror.CodeForbidden)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if err != nil {
		return s.userLookupError(ctx, email, err, goerror.NewBusiness("User not found", goerror.CodeNotFound))
	}

	err = s.repoDB.DeleteUser(ctx, user.ID, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user deleted concurrently", "email", email)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete user", "email", email, "by", clm.Email, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "user deleted", "email", email, "by", clm.Email)
	return nil
}
