package db

import (
	"context"

	"github.com/shandysiswandi/portalauth/internal/notification/entity"
	"github.com/shandysiswandi/portalauth/internal/pkg/goerror"
)

func (s *DB) CreateDeliveryLog(ctx context.Context, in entity.DeliveryLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notification_delivery_logs
			(id, channel, recipient, subject, purpose, status, metadata, correlation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		in.ID, int16(in.Channel), in.Recipient, in.Subject, in.Purpose.String(),
		int16(in.Status), in.Metadata, in.CorrelationID, in.CreatedAt,
	)
	return s.mapError(err)
}

func (s *DB) UpdateDeliveryLog(ctx context.Context, in entity.UpdateDeliveryLog) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE notification_delivery_logs
		SET status = $2, attempts = $3, error = $4, updated_at = $5
		WHERE id = $1`,
		in.ID, int16(in.Status), in.Attempts, in.Error, in.UpdatedAt,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
