package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CollectsErrorsAndRecovers(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	var ran atomic.Int32
	boom := errors.New("boom")

	m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return nil
	})
	m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return boom
	})
	m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		panic("kaboom")
	})

	err := m.Wait()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), ran.Load())
}

func TestManager_ClosedAfterWait(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	require.NoError(t, m.Wait())

	called := false
	m.Go(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, m.Wait())
	assert.False(t, called)
}

func TestManager_SkipsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(1)
	called := false
	m.Go(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, m.Wait())
	assert.False(t, called)
}

func TestManager_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Manager
	m.Go(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, m.Wait())
}
