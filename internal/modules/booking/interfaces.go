package booking

import (
	"context"
	"time"

	"groundbooking/internal/domain"
	"groundbooking/internal/repository"
)

// Repository is implemented by *repository.BookingRepository.
type Repository interface {
	Create(ctx context.Context, nb repository.NewBooking) (*domain.Booking, error)
	Hold(ctx context.Context, date string, claims []repository.SlotClaim, token string, now, expiresAt time.Time) error
	ReleaseHold(ctx context.Context, token string) (string, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	List(ctx context.Context, f repository.ListFilter) ([]*domain.Booking, int64, error)
	Apply(ctx context.Context, id, expectedVersion int64, fn func(b *domain.Booking) error) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) (*domain.Booking, error)
	ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error)
	ApprovedOnOrBefore(ctx context.Context, date string) ([]*domain.Booking, error)
	PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (domain.RateSettings, error)
}
