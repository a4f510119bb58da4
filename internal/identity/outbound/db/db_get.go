package db

import (
	"context"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
)

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	user, err := scanUser(s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM identity_users WHERE email = $1`, email))
	if err != nil {
		return nil, s.mapError(err)
	}

	return user, nil
}

func (s *DB) GetPendingUser(ctx context.Context, email string) (_ *entity.PendingUser, err error) {
	ctx, span := s.startSpan(ctx, "GetPendingUser")
	defer func() { s.endSpan(span, err) }()

	var p entity.PendingUser
	err = s.conn.QueryRow(ctx,
		`SELECT email, name, otp_verified, created_at FROM identity_pending_users WHERE email = $1`,
		email,
	).Scan(&p.Email, &p.Name, &p.OTPVerified, &p.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &p, nil
}

func (s *DB) GetUserRefreshToken(ctx context.Context, tokenHash string) (_ *entity.UserRefreshToken, err error) {
	ctx, span := s.startSpan(ctx, "GetUserRefreshToken")
	defer func() { s.endSpan(span, err) }()

	var (
		rt entity.UserRefreshToken
		u  = &rt.User
	)
	err = s.conn.QueryRow(ctx, `
		SELECT rt.id, rt.expires_at, rt.revoked_at, rt.replaced_by_id,
			u.id, u.email, u.name, u.password_hash, u.is_active, u.is_staff, u.is_superuser,
			u.totp_secret, u.totp_enabled, u.last_login_at, COALESCE(u.last_login_ip, ''),
			COALESCE(u.last_login_device, ''), u.date_joined, u.updated_at
		FROM identity_refresh_tokens rt
		JOIN identity_users u ON u.id = rt.user_id
		WHERE rt.token_hash = $1`,
		tokenHash,
	).Scan(
		&rt.RefreshID, &rt.ExpiresAt, &rt.RevokedAt, &rt.ReplacedByID,
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser,
		&u.TOTPSecret, &u.TOTPEnabled, &u.LastLoginAt, &u.LastLoginIP,
		&u.LastLoginDevice, &u.DateJoined, &u.UpdatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &rt, nil
}
