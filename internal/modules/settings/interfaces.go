package settings

import (
	"context"

	"groundbooking/internal/domain"
)

// Repository persists the singleton rate table.
type Repository interface {
	Get(ctx context.Context) (*domain.RateSettings, error)
	Save(ctx context.Context, s domain.RateSettings) error
}
