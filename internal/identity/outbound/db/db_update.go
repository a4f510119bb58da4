package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

func (s *DB) RecordLogin(ctx context.Context, in entity.LoginRecord) (err error) {
	ctx, span := s.startSpan(ctx, "RecordLogin")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE identity_users
		SET last_login_at = $2, last_login_ip = NULLIF($3, ''), last_login_device = NULLIF($4, ''), updated_at = $2
		WHERE id = $1`,
		in.UserID, in.At, in.IP, in.Device,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) SetUserTOTP(ctx context.Context, userID int64, secret []byte, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "SetUserTOTP")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE identity_users SET totp_secret = $2, totp_enabled = TRUE, updated_at = $3 WHERE id = $1`,
		userID, secret, now,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// RevokeRefreshToken marks a live session revoked. Unknown or already
// revoked tokens are not an error.
func (s *DB) RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`UPDATE identity_refresh_tokens SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash, now,
	)
	return s.mapError(err)
}

func (s *DB) RevokeAllRefreshTokens(ctx context.Context, userID int64, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeAllRefreshTokens")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`UPDATE identity_refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, now,
	)
	return s.mapError(err)
}
