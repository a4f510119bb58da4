package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

var errRefreshInvalid = goerror.NewBusiness("Token is invalid or expired", goerror.CodeUnauthorized)

type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" validate:"required,len=64,hexadecimal"`
}

// RefreshToken swaps a live refresh token for a new session pair. The
// presented token is revoked and linked to its successor.
func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*Session, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "malformed refresh token presented")
		return nil, errRefreshInvalid
	}

	presentedHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash presented refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	rt, err := s.repoDB.GetUserRefreshToken(ctx, string(presentedHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token not found")
		return nil, errRefreshInvalid
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if rt.Revoked() {
		if rt.ReplacedByID == nil {
			slog.WarnContext(ctx, "revoked refresh token presented", "refresh_id", rt.RefreshID)
			return nil, errRefreshInvalid
		}

		// A rotated token coming back means it leaked; end every session.
		if err := s.repoDB.RevokeAllRefreshTokens(ctx, rt.User.ID, now); err != nil {
			slog.ErrorContext(ctx, "failed to repo revoke all refresh tokens", "email", rt.User.Email, "error", err)
		}
		slog.WarnContext(ctx, "refresh token reuse detected", "email", rt.User.Email, "refresh_id", rt.RefreshID)
		return nil, goerror.NewBusiness("Token reuse detected, please log in again", goerror.CodeForbidden)
	}

	if !now.Before(rt.ExpiresAt) {
		slog.WarnContext(ctx, "refresh token expired", "refresh_id", rt.RefreshID)
		return nil, errRefreshInvalid
	}

	if !rt.User.IsActive {
		slog.WarnContext(ctx, "user account is inactive", "email", rt.User.Email)
		return nil, errUserInactive
	}

	sess, row, err := s.mintSession(ctx, rt.User)
	if err != nil {
		return nil, err
	}

	err = s.repoDB.RotateRefreshToken(ctx, entity.RotateRefreshToken{
		OldID:        rt.RefreshID,
		NewID:        row.ID,
		UserID:       rt.User.ID,
		NewTokenHash: row.TokenHash,
		NewExpiresAt: row.ExpiresAt,
		Now:          now,
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token rotated concurrently", "refresh_id", rt.RefreshID)
		return nil, errRefreshInvalid
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate refresh token", "email", rt.User.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return sess, nil
}
