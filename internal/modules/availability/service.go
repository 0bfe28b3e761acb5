// Package availability derives the 24-slot view of a date from stored bookings.
package availability

import (
	"context"
	"time"

	"groundbooking/internal/domain"
	"groundbooking/internal/modules/rate"
	"groundbooking/internal/pkg/clock"
	"groundbooking/internal/repository"
)

type SlotView struct {
	Hour    int               `json:"hour"`
	Status  domain.SlotStatus `json:"status"`
	Rate    int64             `json:"rate"`
	IsNight bool              `json:"is_night"`
}

type Service struct {
	occupancy OccupancyReader
	settings  SettingsReader
	clock     clock.Clock
}

func NewService(occupancy OccupancyReader, settings SettingsReader, clk clock.Clock) *Service {
	return &Service{occupancy: occupancy, settings: settings, clock: clk}
}

// SlotsFor returns the status of every hour of date (YYYY-MM-DD).
// Dates before today are rejected.
func (s *Service) SlotsFor(ctx context.Context, date string) ([domain.SlotsPerDay]SlotView, error) {
	var out [domain.SlotsPerDay]SlotView

	now := s.clock.Now()
	day, err := domain.ParseDate(date, now.Location())
	if err != nil {
		return out, err
	}
	today := startOfDay(now)
	if day.Before(today) {
		return out, domain.NewValidationError("date", "date is in the past")
	}

	rs, err := s.settings.Get(ctx)
	if err != nil {
		return out, err
	}
	occ, err := s.occupancy.OccupancyFor(ctx, date, now)
	if err != nil {
		return out, err
	}
	return Index(day, now, occ, rs), nil
}

// Index builds the slot view from occupancy rows. A past hour reports past
// regardless of occupancy.
func Index(day, now time.Time, occ []repository.Occupancy, rs domain.RateSettings) [domain.SlotsPerDay]SlotView {
	taken := make(map[int]domain.SlotStatus, len(occ))
	for _, o := range occ {
		switch o.Status {
		case domain.BookingPending:
			taken[o.Hour] = domain.SlotPending
		case domain.BookingApproved, domain.BookingCompleted:
			taken[o.Hour] = domain.SlotBooked
		}
	}

	isToday := startOfDay(now).Equal(day)
	var out [domain.SlotsPerDay]SlotView
	for h := 0; h < domain.SlotsPerDay; h++ {
		r := rate.RateFor(h, rs)
		v := SlotView{Hour: h, Status: domain.SlotAvailable, Rate: r.Amount, IsNight: r.IsNightRate}
		switch st, ok := taken[h]; {
		case isToday && h < now.Hour():
			v.Status = domain.SlotPast
		case ok:
			v.Status = st
		}
		out[h] = v
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
