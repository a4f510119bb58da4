//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/portalauth/internal/notification/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/pgtest"
	"github.com/shandysiswandi/portalauth/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_DeliveryLog(t *testing.T) {
	ctx := context.Background()
	pool, stop, err := pgtest.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	repo := NewDB(pool, instrument.NewNoop())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateDeliveryLog(ctx, entity.DeliveryLog{
		ID:            1,
		Channel:       entity.ChannelEmail,
		Recipient:     "asha@narayanagroup.com",
		Subject:       "Your OTP Code",
		Purpose:       entity.PurposeSignup,
		Status:        entity.DeliveryStatusQueued,
		Metadata:      valueobject.JSONMap{"ttl_minutes": 5},
		CorrelationID: "cid-1",
		CreatedAt:     now,
	}))

	require.NoError(t, repo.UpdateDeliveryLog(ctx, entity.UpdateDeliveryLog{
		ID: 1, Status: entity.DeliveryStatusSent, Attempts: 2, UpdatedAt: now.Add(time.Second),
	}))

	var (
		status   int16
		attempts int
		metadata valueobject.JSONMap
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT status, attempts, metadata FROM notification_delivery_logs WHERE id = 1`,
	).Scan(&status, &attempts, &metadata))
	assert.Equal(t, int16(entity.DeliveryStatusSent), status)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, float64(5), metadata["ttl_minutes"])

	err = repo.UpdateDeliveryLog(ctx, entity.UpdateDeliveryLog{ID: 99, Status: entity.DeliveryStatusFailed})
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}
