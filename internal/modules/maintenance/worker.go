// Package maintenance runs the periodic housekeeping pass: expiring stale
// pending bookings, completing played ones, purging lapsed holds and
// refreshing the cached rate table.
package maintenance

import (
	"context"
	"errors"
	"log"
	"time"
)

type Bookings interface {
	ExpirePending(ctx context.Context) (int, error)
	CompletePlayed(ctx context.Context) (int, error)
	PurgeHolds(ctx context.Context) (int64, error)
}

type SettingsRefresher interface {
	Refresh(ctx context.Context) error
}

type Report struct {
	Expired   int
	Completed int
	Purged    int64
}

type Worker struct {
	bookings Bookings
	settings SettingsRefresher
}

func NewWorker(bookings Bookings, settings SettingsRefresher) *Worker {
	return &Worker{bookings: bookings, settings: settings}
}

// RunOnce performs every step even when an earlier one fails and returns
// the joined errors.
func (w *Worker) RunOnce(ctx context.Context) (Report, error) {
	var rep Report
	var errs []error

	n, err := w.bookings.ExpirePending(ctx)
	rep.Expired = n
	if err != nil {
		errs = append(errs, err)
	}

	n, err = w.bookings.CompletePlayed(ctx)
	rep.Completed = n
	if err != nil {
		errs = append(errs, err)
	}

	purged, err := w.bookings.PurgeHolds(ctx)
	rep.Purged = purged
	if err != nil {
		errs = append(errs, err)
	}

	if w.settings != nil {
		if err := w.settings.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return rep, errors.Join(errs...)
}

// Start runs RunOnce every interval until ctx is cancelled. The returned
// channel is closed once the loop, including any pass in flight, has exited.
func (w *Worker) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rep, err := w.RunOnce(ctx)
				if err != nil {
					log.Printf("maintenance_failed expired=%d completed=%d purged=%d err=%v", rep.Expired, rep.Completed, rep.Purged, err)
					continue
				}
				if rep.Expired+rep.Completed > 0 || rep.Purged > 0 {
					log.Printf("maintenance_done expired=%d completed=%d purged=%d", rep.Expired, rep.Completed, rep.Purged)
				}
			}
		}
	}()
	return done
}
