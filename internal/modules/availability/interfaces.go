package availability

import (
	"context"
	"time"

	"groundbooking/internal/domain"
	"groundbooking/internal/repository"
)

type OccupancyReader interface {
	OccupancyFor(ctx context.Context, date string, now time.Time) ([]repository.Occupancy, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (domain.RateSettings, error)
}
