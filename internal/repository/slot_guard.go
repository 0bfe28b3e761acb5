package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"groundbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotClaim is one requested hour with the rate captured at reservation time.
type SlotClaim struct {
	Hour        int
	IsNightRate bool
	HourlyRate  int64
}

// reserveRequest describes one atomic claim on a set of hours of a date.
type reserveRequest struct {
	Date   string
	Claims []SlotClaim
	Now    time.Time

	// AdoptHold names a live hold whose rows belong to the caller.
	AdoptHold string

	// HoldToken and HoldExpiresAt mark inserted rows as an unattached hold.
	HoldToken     string
	HoldExpiresAt *time.Time
}

func (r reserveRequest) hours() []int {
	out := make([]int, 0, len(r.Claims))
	for _, c := range r.Claims {
		out = append(out, c.Hour)
	}
	return out
}

// reserve claims every requested hour or none. It must run inside a
// transaction while the date lock is held. On conflict it returns a
// *domain.SlotConflictError listing the taken hours and writes nothing.
func reserve(tx *gorm.DB, req reserveRequest) ([]slotModel, error) {
	hours := req.hours()
	now := req.Now.UTC()

	var holds []slotModel
	if err := tx.
		Where("slot_date = ? AND slot_hour IN ? AND active = ? AND booking_id IS NULL", req.Date, hours, true).
		Find(&holds).Error; err != nil {
		return nil, err
	}
	var stale []int64
	for _, h := range holds {
		if h.HoldExpiresAt == nil || !h.HoldExpiresAt.After(now) {
			stale = append(stale, h.ID)
		}
	}
	if len(stale) > 0 {
		if err := tx.Model(&slotModel{}).Where("id IN ?", stale).Update("active", false).Error; err != nil {
			return nil, err
		}
	}

	var taken []slotModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("slot_date = ? AND slot_hour IN ? AND active = ?", req.Date, hours, true).
		Find(&taken).Error; err != nil {
		return nil, err
	}

	var conflicts []int
	for _, t := range taken {
		if req.AdoptHold != "" && t.BookingID == nil && t.HoldToken != nil && *t.HoldToken == req.AdoptHold {
			continue
		}
		conflicts = append(conflicts, t.SlotHour)
	}
	if len(conflicts) > 0 {
		return nil, &domain.SlotConflictError{Date: req.Date, Hours: uniqueSorted(conflicts)}
	}

	if req.AdoptHold != "" {
		if err := tx.Model(&slotModel{}).
			Where("hold_token = ? AND booking_id IS NULL AND active = ?", req.AdoptHold, true).
			Update("active", false).Error; err != nil {
			return nil, err
		}
	}

	rows := make([]slotModel, 0, len(req.Claims))
	for _, c := range req.Claims {
		rows = append(rows, slotModel{
			HoldToken:     strPtr(req.HoldToken),
			HoldExpiresAt: req.HoldExpiresAt,
			SlotDate:      req.Date,
			SlotHour:      c.Hour,
			IsNightRate:   c.IsNightRate,
			HourlyRate:    c.HourlyRate,
			Active:        true,
			CreatedAt:     now,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// activeConflicts reads which of hours are currently taken. Used to turn a
// unique-index violation into the same conflict result reserve reports.
func activeConflicts(db *gorm.DB, date string, hours []int) (*domain.SlotConflictError, error) {
	var taken []int
	if err := db.Model(&slotModel{}).
		Where("slot_date = ? AND slot_hour IN ? AND active = ?", date, hours, true).
		Pluck("slot_hour", &taken).Error; err != nil {
		return nil, err
	}
	if len(taken) == 0 {
		// The competing row was rolled back; report every requested hour.
		taken = hours
	}
	return &domain.SlotConflictError{Date: date, Hours: uniqueSorted(taken)}, nil
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, h := range in {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// dateLocks serialises reservations per calendar date inside one process.
// Row locks and the partial unique index cover multi-process deployments.
type dateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	ch   chan struct{}
	refs int
}

func newDateLocks() *dateLocks {
	return &dateLocks{locks: make(map[string]*dateLock)}
}

// acquire blocks until date is free or ctx is done.
func (l *dateLocks) acquire(ctx context.Context, date string) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[date]
	if !ok {
		dl = &dateLock{ch: make(chan struct{}, 1)}
		l.locks[date] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.ch <- struct{}{}:
		return func() {
			<-dl.ch
			l.forget(date, dl)
		}, nil
	case <-ctx.Done():
		l.forget(date, dl)
		return nil, fmt.Errorf("%w: waiting for date lock %s: %v", domain.ErrStoreUnavailable, date, ctx.Err())
	}
}

func (l *dateLocks) forget(date string, dl *dateLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, date)
	}
}
