package db

import (
	"context"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
)

func (s *DB) CreateRefreshToken(ctx context.Context, in entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO identity_refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		in.ID, in.UserID, in.TokenHash, in.ExpiresAt, in.CreatedAt,
	)
	return s.mapError(err)
}

// CreateSuperuser inserts a privileged account without a pending registration.
func (s *DB) CreateSuperuser(ctx context.Context, in entity.User) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSuperuser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO identity_users (id, email, name, password_hash, is_active, is_staff, is_superuser, date_joined, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		in.ID, in.Email, in.Name, in.PasswordHash, in.IsActive, in.IsStaff, in.IsSuperuser, in.DateJoined,
	)
	return s.mapError(err)
}
