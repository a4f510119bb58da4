package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

func (s *DB) rollback(ctx context.Context, tx pgx.Tx) {
	if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
		slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
	}
}

// SavePendingUser upserts the registration as unverified with a fresh
// created_at and drops every code issued for the email.
func (s *DB) SavePendingUser(ctx context.Context, in entity.PendingUser) (err error) {
	ctx, span := s.startSpan(ctx, "SavePendingUser")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_pending_users (email, name, otp_verified, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, otp_verified = FALSE, created_at = EXCLUDED.created_at`,
		in.Email, in.Name, in.CreatedAt,
	); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM identity_otps WHERE email = $1`, in.Email); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// ReplaceOTP deletes earlier unused codes of the same purpose and stores in.
func (s *DB) ReplaceOTP(ctx context.Context, in entity.OTP) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceOTP")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM identity_otps WHERE email = $1 AND purpose = $2 AND is_used = FALSE`,
		in.Email, in.Purpose.String(),
	); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_otps (id, email, code_hash, purpose, is_used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`,
		in.ID, in.Email, in.CodeHash, in.Purpose.String(), in.CreatedAt,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// ConsumeOTP marks the newest matching unused code as used. It returns
// goerror.ErrNotFound when nothing matches and entity.ErrOTPExpired, after
// committing the deletion of the stale code (and of the pending signup for
// signup codes), when the code is too old.
func (s *DB) ConsumeOTP(ctx context.Context, in entity.ConsumeOTP) (err error) {
	ctx, span := s.startSpan(ctx, "ConsumeOTP")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, created_at FROM identity_otps
		WHERE email = $1 AND code_hash = $2 AND purpose = $3 AND is_used = FALSE
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		in.Email, in.CodeHash, in.Purpose.String(),
	).Scan(&id, &createdAt)
	if err != nil {
		return s.mapError(err)
	}

	if createdAt.Before(in.NotBefore) {
		if err := s.expireOTP(ctx, tx, id, in.Email, in.Purpose); err != nil {
			return err
		}
		return entity.ErrOTPExpired
	}

	if _, err := tx.Exec(ctx,
		`UPDATE identity_otps SET is_used = TRUE, used_at = $2 WHERE id = $1`, id, in.Now,
	); err != nil {
		return s.mapError(err)
	}

	if in.VerifyPending {
		tag, err := tx.Exec(ctx,
			`UPDATE identity_pending_users SET otp_verified = TRUE WHERE email = $1`, in.Email)
		if err != nil {
			return s.mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return goerror.ErrNotFound
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *DB) expireOTP(ctx context.Context, tx pgx.Tx, id int64, email string, purpose entity.OTPPurpose) error {
	if _, err := tx.Exec(ctx, `DELETE FROM identity_otps WHERE id = $1`, id); err != nil {
		return s.mapError(err)
	}

	if purpose == entity.OTPPurposeSignup {
		if _, err := tx.Exec(ctx, `DELETE FROM identity_pending_users WHERE email = $1`, email); err != nil {
			return s.mapError(err)
		}
	}

	return s.mapError(tx.Commit(ctx))
}

// ResetPassword checks that CodeHash is the newest reset code of the email,
// used or not, then sets the password, drops every reset code of the email and revokes
// all refresh sessions of the user.
func (s *DB) ResetPassword(ctx context.Context, in entity.ResetPassword) (err error) {
	ctx, span := s.startSpan(ctx, "ResetPassword")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	var (
		id        int64
		codeHash  string
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, code_hash, created_at FROM identity_otps
		WHERE email = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		in.Email, entity.OTPPurposeResetPassword.String(),
	).Scan(&id, &codeHash, &createdAt)
	if err != nil {
		return s.mapError(err)
	}

	// Only the latest reset code counts; a reissue supersedes the rest.
	if codeHash != in.CodeHash {
		return goerror.ErrNotFound
	}

	if createdAt.Before(in.NotBefore) {
		if err := s.expireOTP(ctx, tx, id, in.Email, entity.OTPPurposeResetPassword); err != nil {
			return err
		}
		return entity.ErrOTPExpired
	}

	tag, err := tx.Exec(ctx,
		`UPDATE identity_users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		in.UserID, in.PasswordHash, in.Now,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM identity_otps WHERE email = $1 AND purpose = $2`,
		in.Email, entity.OTPPurposeResetPassword.String(),
	); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE identity_refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		in.UserID, in.Now,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// CreateAccount turns a verified pending registration into a user: insert
// the user, drop the pending row and every code of the email, then store
// the first refresh session.
func (s *DB) CreateAccount(ctx context.Context, in entity.NewAccount) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	u := in.User
	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_users (id, email, name, password_hash, is_active, is_staff, is_superuser,
			last_login_at, last_login_ip, last_login_device, date_joined, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, $11)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.IsActive, u.IsStaff, u.IsSuperuser,
		u.LastLoginAt, u.LastLoginIP, u.LastLoginDevice, u.DateJoined,
	); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM identity_pending_users WHERE email = $1 AND otp_verified = TRUE`, u.Email)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM identity_otps WHERE email = $1`, u.Email); err != nil {
		return s.mapError(err)
	}

	if rt := in.Session; rt != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO identity_refresh_tokens (id, user_id, token_hash, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			rt.ID, rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.CreatedAt,
		); err != nil {
			return s.mapError(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// RotateRefreshToken revokes OldID, links it to NewID and stores the new
// session. A concurrent rotation of OldID yields goerror.ErrNotFound.
func (s *DB) RotateRefreshToken(ctx context.Context, in entity.RotateRefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "RotateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		in.NewID, in.UserID, in.NewTokenHash, in.NewExpiresAt, in.Now,
	); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE identity_refresh_tokens SET revoked_at = $2, replaced_by_id = $3
		WHERE id = $1 AND revoked_at IS NULL`,
		in.OldID, in.Now, in.NewID,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// DeleteUser revokes every session of the user then deletes the account.
func (s *DB) DeleteUser(ctx context.Context, userID int64, now time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteUser")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer s.rollback(ctx, tx)

	if _, err := tx.Exec(ctx,
		`UPDATE identity_refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, now,
	); err != nil {
		return s.mapError(err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM identity_users WHERE id = $1`, userID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}
