// Package settings owns the singleton day/night rate table.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"groundbooking/internal/domain"
	"groundbooking/internal/pkg/clock"
)

// Store caches the rate table in memory. Writes go through the repository
// first; the cache is only replaced after a successful save.
type Store struct {
	repo     Repository
	defaults domain.RateSettings
	clock    clock.Clock

	writeMu sync.Mutex
	mu      sync.RWMutex
	cached  *domain.RateSettings
}

func NewStore(repo Repository, defaults domain.RateSettings, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store{repo: repo, defaults: defaults, clock: clk}
}

// Load reads the singleton row, seeding it from the defaults when missing.
func (s *Store) Load(ctx context.Context) (domain.RateSettings, error) {
	current, err := s.repo.Get(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		if verr := s.defaults.Validate(); verr != nil {
			return domain.RateSettings{}, fmt.Errorf("default rate settings: %w", verr)
		}
		seed := s.defaults
		seed.UpdatedBy = "system"
		seed.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, seed); err != nil {
			return domain.RateSettings{}, err
		}
		log.Printf("settings_seeded day_rate=%d night_rate=%d night_start=%d night_end=%d",
			seed.DayRate, seed.NightRate, seed.NightStartHour, seed.NightEndHour)
		current = &seed
	default:
		return domain.RateSettings{}, err
	}

	s.setCache(*current)
	return *current, nil
}

// Get returns the cached settings, loading them on first use.
func (s *Store) Get(ctx context.Context) (domain.RateSettings, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	return s.Load(ctx)
}

// Refresh drops the cache and reloads from the store, picking up changes
// written by other instances.
func (s *Store) Refresh(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

// Update applies p on top of the stored settings. Concurrent updates are
// last-writer-wins. Existing bookings keep their captured rates.
func (s *Store) Update(ctx context.Context, p Patch, actor string) (domain.RateSettings, error) {
	if p.empty() {
		return domain.RateSettings{}, domain.NewValidationError("body", "at least one field must be provided")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return domain.RateSettings{}, err
	}

	next := current
	if p.DayRate != nil {
		next.DayRate = *p.DayRate
	}
	if p.NightRate != nil {
		next.NightRate = *p.NightRate
	}
	if p.NightStartHour != nil {
		next.NightStartHour = *p.NightStartHour
	}
	if p.NightEndHour != nil {
		next.NightEndHour = *p.NightEndHour
	}
	if err := next.Validate(); err != nil {
		return domain.RateSettings{}, err
	}
	next.UpdatedBy = actor
	next.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, next); err != nil {
		return domain.RateSettings{}, err
	}
	s.setCache(next)

	log.Printf("settings_updated actor=%s day_rate=%d night_rate=%d night_start=%d night_end=%d",
		actor, next.DayRate, next.NightRate, next.NightStartHour, next.NightEndHour)
	return next, nil
}

func (s *Store) setCache(v domain.RateSettings) {
	s.mu.Lock()
	s.cached = &v
	s.mu.Unlock()
}
