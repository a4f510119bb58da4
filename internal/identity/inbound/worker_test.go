package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/portalauth/internal/pkg/goroutine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type stubHousekeeper struct {
	interval time.Duration
	block    chan struct{}
	stale    *atomic.Int32
	sessions *atomic.Int32
}

func newStubHousekeeper(interval time.Duration) *stubHousekeeper {
	return &stubHousekeeper{interval: interval, stale: atomic.NewInt32(0), sessions: atomic.NewInt32(0)}
}

func (s *stubHousekeeper) HousekeepingInterval() time.Duration { return s.interval }

func (s *stubHousekeeper) PurgeStaleRegistrations(ctx context.Context) error {
	s.stale.Inc()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	return nil
}

func (s *stubHousekeeper) PurgeExpiredSessions(context.Context) error {
	s.sessions.Inc()
	return nil
}

func TestRegisterHousekeeping(t *testing.T) {
	t.Run("sweeps on every tick until canceled", func(t *testing.T) {
		hk := newStubHousekeeper(10 * time.Millisecond)
		routine := goroutine.NewManager(4)
		ctx, cancel := context.WithCancel(context.Background())

		RegisterHousekeeping(ctx, routine, hk)

		require.Eventually(t, func() bool {
			return hk.stale.Load() >= 3 && hk.sessions.Load() >= 3
		}, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, routine.Wait())
	})

	t.Run("skips ticks while a sweep is running", func(t *testing.T) {
		hk := newStubHousekeeper(5 * time.Millisecond)
		hk.block = make(chan struct{})
		routine := goroutine.NewManager(4)
		ctx, cancel := context.WithCancel(context.Background())

		RegisterHousekeeping(ctx, routine, hk)

		require.Eventually(t, func() bool { return hk.stale.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, int32(1), hk.stale.Load())
		assert.Equal(t, int32(0), hk.sessions.Load())

		close(hk.block)
		require.Eventually(t, func() bool { return hk.stale.Load() >= 2 }, time.Second, time.Millisecond)

		cancel()
		require.NoError(t, routine.Wait())
	})
}
