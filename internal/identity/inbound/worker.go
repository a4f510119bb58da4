package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/portalauth/internal/pkg/goroutine"
	"go.uber.org/atomic"
)

type housekeeper interface {
	HousekeepingInterval() time.Duration
	PurgeStaleRegistrations(ctx context.Context) error
	PurgeExpiredSessions(ctx context.Context) error
}

// RegisterHousekeeping starts a ticker that sweeps stale registrations and
// expired sessions until ctx is done. A sweep still in flight when the next
// tick fires makes that tick a no-op.
func RegisterHousekeeping(ctx context.Context, routine *goroutine.Manager, uc housekeeper) {
	w := &housekeepingWorker{uc: uc, routine: routine, sweeping: atomic.NewBool(false)}
	routine.Go(ctx, w.run)
}

type housekeepingWorker struct {
	uc       housekeeper
	routine  *goroutine.Manager
	sweeping *atomic.Bool
}

func (w *housekeepingWorker) run(ctx context.Context) error {
	interval := w.uc.HousekeepingInterval()
	slog.InfoContext(ctx, "Running job for identity housekeeping", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *housekeepingWorker) tick(ctx context.Context) {
	if !w.sweeping.CompareAndSwap(false, true) {
		slog.DebugContext(ctx, "identity housekeeping still running, skipping tick")
		return
	}

	w.routine.Go(ctx, func(ctx context.Context) error {
		defer w.sweeping.Store(false)
		w.sweep(ctx)
		return nil
	})
}

// sweep runs both jobs; failures are already logged by the usecase.
func (w *housekeepingWorker) sweep(ctx context.Context) {
	_ = w.uc.PurgeStaleRegistrations(ctx)
	_ = w.uc.PurgeExpiredSessions(ctx)
}
