package db

import (
	"context"
	"time"
)

func (s *DB) DeleteStaleOTPs(ctx context.Context, before time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteStaleOTPs")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_otps WHERE created_at < $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *DB) DeleteStalePendingUsers(ctx context.Context, before time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteStalePendingUsers")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`DELETE FROM identity_pending_users WHERE otp_verified = FALSE AND created_at < $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *DB) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpiredRefreshTokens")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}
