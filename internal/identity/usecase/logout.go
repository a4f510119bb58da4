package usecase

import (
	"context"
	"log/slog"
)

type LogoutInput struct {
	RefreshToken string
}

// Logout revokes the presented refresh token when it can. It never fails:
// the caller clears cookies regardless.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if len(in.RefreshToken) != 64 {
		slog.InfoContext(ctx, "logout without a usable refresh token")
		return
	}

	tokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.WarnContext(ctx, "failed to hash refresh token", "error", err)
		return
	}

	if err := s.repoDB.RevokeRefreshToken(ctx, string(tokenHash), s.clock.Now()); err != nil {
		slog.WarnContext(ctx, "failed to repo revoke refresh token", "error", err)
	}
}
