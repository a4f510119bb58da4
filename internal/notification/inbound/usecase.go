package inbound

import (
	"context"

	"github.com/shandysiswandi/portalauth/internal/notification/usecase"
)

type uc interface {
	ConsumeOTPIssued(ctx context.Context, in usecase.ConsumeOTPIssuedInput) error
}
