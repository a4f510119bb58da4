package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
)

// HousekeepingInterval is how often the purge jobs are due.
func (s *Usecase) HousekeepingInterval() time.Duration {
	return durationOr(s.cfg.GetSecond("modules.identity.housekeeping.interval_seconds"), 5*time.Minute)
}

// PurgeStaleRegistrations deletes expired codes and unverified pending
// registrations. Only one replica runs it per interval slot.
func (s *Usecase) PurgeStaleRegistrations(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "PurgeStaleRegistrations")
	defer span.End()

	return s.runOncePerSlot(ctx, "registrations", func(ctx context.Context) error {
		now := s.clock.Now()

		otps, err := s.repoDB.DeleteStaleOTPs(ctx, now.Add(-s.otpTTL()))
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo delete stale otps", "error", err)
			return goerror.NewServer(err)
		}

		pending, err := s.repoDB.DeleteStalePendingUsers(ctx, now.Add(-s.pendingTTL()))
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo delete stale pending users", "error", err)
			return goerror.NewServer(err)
		}

		slog.InfoContext(ctx, "stale registrations purged", "otps", otps, "pending_users", pending)
		return nil
	})
}

// PurgeExpiredSessions deletes refresh sessions past their expiry, revoked
// or not.
func (s *Usecase) PurgeExpiredSessions(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "PurgeExpiredSessions")
	defer span.End()

	return s.runOncePerSlot(ctx, "sessions", func(ctx context.Context) error {
		n, err := s.repoDB.DeleteExpiredRefreshTokens(ctx, s.clock.Now())
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo delete expired refresh tokens", "error", err)
			return goerror.NewServer(err)
		}

		slog.InfoContext(ctx, "expired sessions purged", "refresh_tokens", n)
		return nil
	})
}

func (s *Usecase) runOncePerSlot(ctx context.Context, job string, fn func(context.Context) error) error {
	interval := s.HousekeepingInterval()
	slot := s.clock.Now().Truncate(interval).Unix()
	key := "identity:housekeeping:" + job + ":" + strconv.FormatInt(slot, 10)

	if instrument.GetCorrelationID(ctx) == "" {
		ctx = instrument.SetCorrelationID(ctx, key)
	}

	err := s.idemp.Exec(ctx, key, fn,
		idempotency.WithLockDuration(interval),
		idempotency.WithStateTTL(2*interval),
	)
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress),
		errors.Is(err, idempotency.ErrAlreadyCompleted),
		errors.Is(err, idempotency.ErrAlreadyFailed):
		slog.DebugContext(ctx, "housekeeping slot already taken", "job", job, "slot", slot)
		return nil
	case err != nil:
		slog.ErrorContext(ctx, "failed to run housekeeping", "job", job, "slot", slot, "error", err)
		return err
	default:
		return nil
	}
}
