package entity

import (
	"time"

	"github.com/shandysiswandi/portalauth/internal/pkg/valueobject"
)

// DeliveryLog records one outgoing message. The message body is never
// stored since it carries the one-time code.
type DeliveryLog struct {
	ID            int64
	Channel       Channel
	Recipient     string
	Subject       string
	Purpose       Purpose
	Status        DeliveryStatus
	Metadata      valueobject.JSONMap
	CorrelationID string
	CreatedAt     time.Time
}

type UpdateDeliveryLog struct {
	ID        int64
	Status    DeliveryStatus
	Attempts  int
	Error     string
	UpdatedAt time.Time
}
