//go:build integration

package db

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/shandysiswandi/portalauth/internal/identity/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *DB

func TestMain(m *testing.M) {
	pool, stop, err := pgtest.Start(context.Background())
	if err != nil {
		log.Printf("failed to start postgres: %v", err)
		os.Exit(1)
	}

	testDB = NewDB(pool, instrument.NewNoop())
	code := m.Run()
	stop()
	os.Exit(code)
}

var (
	idSeq int64 = 1000
	t0          = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

func nextID() int64 {
	idSeq++
	return idSeq
}

func seedAccount(t *testing.T, email string) *entity.User {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, testDB.SavePendingUser(ctx, entity.PendingUser{Email: email, Name: "Asha", CreatedAt: t0}))
	require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
		ID: nextID(), Email: email, CodeHash: "signup-" + email, Purpose: entity.OTPPurposeSignup, CreatedAt: t0,
	}))
	require.NoError(t, testDB.ConsumeOTP(ctx, entity.ConsumeOTP{
		Email: email, CodeHash: "signup-" + email, Purpose: entity.OTPPurposeSignup,
		NotBefore: t0.Add(-5 * time.Minute), Now: t0, VerifyPending: true,
	}))

	user := entity.User{ID: nextID(), Email: email, Name: "Asha", PasswordHash: "hash", IsActive: true, DateJoined: t0}
	require.NoError(t, testDB.CreateAccount(ctx, entity.NewAccount{
		User: user,
		Session: &entity.RefreshToken{
			ID: nextID(), UserID: user.ID, TokenHash: "rt-" + email, ExpiresAt: t0.Add(24 * time.Hour), CreatedAt: t0,
		},
	}))

	got, err := testDB.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	return got
}

func TestDB_Registration(t *testing.T) {
	ctx := context.Background()

	t.Run("account creation consumes the pending row", func(t *testing.T) {
		user := seedAccount(t, "reg@narayanagroup.com")
		assert.Equal(t, "Asha", user.Name)
		assert.True(t, user.IsActive)

		_, err := testDB.GetPendingUser(ctx, "reg@narayanagroup.com")
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		err := testDB.CreateSuperuser(ctx, entity.User{
			ID: nextID(), Email: "reg@narayanagroup.com", PasswordHash: "x", IsActive: true, DateJoined: t0,
		})
		assert.ErrorIs(t, err, goerror.ErrConflict)
	})

	t.Run("unverified pending cannot become an account", func(t *testing.T) {
		require.NoError(t, testDB.SavePendingUser(ctx, entity.PendingUser{Email: "unv@narayanagroup.com", CreatedAt: t0}))
		err := testDB.CreateAccount(ctx, entity.NewAccount{
			User: entity.User{ID: nextID(), Email: "unv@narayanagroup.com", IsActive: true, DateJoined: t0},
		})
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		_, err = testDB.GetUserByEmail(ctx, "unv@narayanagroup.com")
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})
}

func TestDB_ConsumeOTP(t *testing.T) {
	ctx := context.Background()
	email := "otp@narayanagroup.com"
	require.NoError(t, testDB.SavePendingUser(ctx, entity.PendingUser{Email: email, CreatedAt: t0}))

	t.Run("replaced code no longer matches", func(t *testing.T) {
		require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
			ID: nextID(), Email: email, CodeHash: "old", Purpose: entity.OTPPurposeSignup, CreatedAt: t0,
		}))
		require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
			ID: nextID(), Email: email, CodeHash: "new", Purpose: entity.OTPPurposeSignup, CreatedAt: t0,
		}))

		err := testDB.ConsumeOTP(ctx, entity.ConsumeOTP{
			Email: email, CodeHash: "old", Purpose: entity.OTPPurposeSignup, NotBefore: t0.Add(-time.Minute), Now: t0,
		})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("expired signup code drops the registration", func(t *testing.T) {
		err := testDB.ConsumeOTP(ctx, entity.ConsumeOTP{
			Email: email, CodeHash: "new", Purpose: entity.OTPPurposeSignup, NotBefore: t0.Add(time.Second), Now: t0,
		})
		assert.ErrorIs(t, err, entity.ErrOTPExpired)

		_, err = testDB.GetPendingUser(ctx, email)
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})
}

func TestDB_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	user := seedAccount(t, "rt@narayanagroup.com")

	rt, err := testDB.GetUserRefreshToken(ctx, "rt-rt@narayanagroup.com")
	require.NoError(t, err)
	assert.False(t, rt.Revoked())
	assert.Equal(t, user.ID, rt.User.ID)

	newID := nextID()
	rotate := entity.RotateRefreshToken{
		OldID: rt.RefreshID, NewID: newID, UserID: user.ID,
		NewTokenHash: "rt-2", NewExpiresAt: t0.Add(24 * time.Hour), Now: t0,
	}
	require.NoError(t, testDB.RotateRefreshToken(ctx, rotate))

	old, err := testDB.GetUserRefreshToken(ctx, "rt-rt@narayanagroup.com")
	require.NoError(t, err)
	assert.True(t, old.Revoked())
	require.NotNil(t, old.ReplacedByID)
	assert.Equal(t, newID, *old.ReplacedByID)

	rotate.NewID, rotate.NewTokenHash = nextID(), "rt-3"
	assert.ErrorIs(t, testDB.RotateRefreshToken(ctx, rotate), goerror.ErrNotFound)

	require.NoError(t, testDB.RevokeAllRefreshTokens(ctx, user.ID, t0))
	cur, err := testDB.GetUserRefreshToken(ctx, "rt-2")
	require.NoError(t, err)
	assert.True(t, cur.Revoked())

	n, err := testDB.DeleteExpiredRefreshTokens(ctx, t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(2))
}

func TestDB_ResetPassword(t *testing.T) {
	ctx := context.Background()
	user := seedAccount(t, "reset@narayanagroup.com")

	require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
		ID: nextID(), Email: user.Email, CodeHash: "reset", Purpose: entity.OTPPurposeResetPassword, CreatedAt: t0,
	}))
	require.NoError(t, testDB.ConsumeOTP(ctx, entity.ConsumeOTP{
		Email: user.Email, CodeHash: "reset", Purpose: entity.OTPPurposeResetPassword,
		NotBefore: t0.Add(-time.Minute), Now: t0,
	}))

	in := entity.ResetPassword{
		UserID: user.ID, Email: user.Email, CodeHash: "reset",
		NotBefore: t0.Add(-time.Minute), Now: t0, PasswordHash: "new-hash",
	}
	require.NoError(t, testDB.ResetPassword(ctx, in))

	got, err := testDB.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	rt, err := testDB.GetUserRefreshToken(ctx, "rt-reset@narayanagroup.com")
	require.NoError(t, err)
	assert.True(t, rt.Revoked())

	assert.ErrorIs(t, testDB.ResetPassword(ctx, in), goerror.ErrNotFound)

	t.Run("SupersededCodeRejected", func(t *testing.T) {
		other := seedAccount(t, "reissue@narayanagroup.com")

		require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
			ID: nextID(), Email: other.Email, CodeHash: "first", Purpose: entity.OTPPurposeResetPassword, CreatedAt: t0,
		}))
		require.NoError(t, testDB.ConsumeOTP(ctx, entity.ConsumeOTP{
			Email: other.Email, CodeHash: "first", Purpose: entity.OTPPurposeResetPassword,
			NotBefore: t0.Add(-time.Minute), Now: t0,
		}))
		require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
			ID: nextID(), Email: other.Email, CodeHash: "second", Purpose: entity.OTPPurposeResetPassword, CreatedAt: t0.Add(time.Minute),
		}))

		stale := entity.ResetPassword{
			UserID: other.ID, Email: other.Email, CodeHash: "first",
			NotBefore: t0.Add(-time.Minute), Now: t0.Add(time.Minute), PasswordHash: "stale-hash",
		}
		assert.ErrorIs(t, testDB.ResetPassword(ctx, stale), goerror.ErrNotFound)

		fresh := stale
		fresh.CodeHash = "second"
		fresh.PasswordHash = "fresh-hash"
		require.NoError(t, testDB.ResetPassword(ctx, fresh))

		got, err := testDB.GetUserByEmail(ctx, other.Email)
		require.NoError(t, err)
		assert.Equal(t, "fresh-hash", got.PasswordHash)
	})
}

func TestDB_Housekeeping(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.SavePendingUser(ctx, entity.PendingUser{Email: "stale@narayanagroup.com", CreatedAt: t0.Add(-time.Hour)}))
	require.NoError(t, testDB.ReplaceOTP(ctx, entity.OTP{
		ID: nextID(), Email: "stale@narayanagroup.com", CodeHash: "s", Purpose: entity.OTPPurposeSignup, CreatedAt: t0.Add(-time.Hour),
	}))

	n, err := testDB.DeleteStaleOTPs(ctx, t0.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	n, err = testDB.DeleteStalePendingUsers(ctx, t0.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestDB_DeleteUser(t *testing.T) {
	ctx := context.Background()
	user := seedAccount(t, "gone@narayanagroup.com")

	require.NoError(t, testDB.RecordLogin(ctx, entity.LoginRecord{UserID: user.ID, At: t0, IP: "10.0.0.1", Device: "curl"}))
	require.NoError(t, testDB.SetUserTOTP(ctx, user.ID, []byte("sealed"), t0))

	got, err := testDB.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.True(t, got.HasTOTP())
	assert.Equal(t, "10.0.0.1", got.LastLoginIP)

	require.NoError(t, testDB.DeleteUser(ctx, user.ID, t0))
	assert.ErrorIs(t, testDB.DeleteUser(ctx, user.ID, t0), goerror.ErrNotFound)

	_, err = testDB.GetUserRefreshToken(ctx, "rt-gone@narayanagroup.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}
