package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"groundbooking/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	activeSlotIndex     = "idx_booking_slots_active"
	idempotencyKeyIndex = "idx_bookings_idempotency_key"
	bookingNumberIndex  = "idx_bookings_booking_number"
)

// ErrDuplicateRequest is returned when a booking with the same idempotency
// key was committed concurrently.
var ErrDuplicateRequest = errors.New("duplicate idempotency key")

// ErrDuplicateNumber is returned when the generated booking number is
// already taken. Nothing was written; retry with a new number.
var ErrDuplicateNumber = errors.New("duplicate booking number")

// Options bound every store call.
type Options struct {
	Timeout      time.Duration
	ReadRetries  int
	RetryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.ReadRetries < 0 {
		o.ReadRetries = 0
	}
	return o
}

type store struct {
	db   *gorm.DB
	opts Options
}

func newStore(db *gorm.DB, opts Options) store {
	return store{db: db, opts: opts.withDefaults()}
}

// write runs fn once under the store timeout. Writes never retry.
func (s store) write(ctx context.Context, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return mapError(ctx, fn(s.db.WithContext(ctx)))
}

// read retries fn on ErrStoreUnavailable with linear backoff.
func (s store) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.once(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) || attempt >= s.opts.ReadRetries {
			return err
		}
		log.Printf("store_read_retry op=%s attempt=%d err=%v", op, attempt+1, err)

		wait := s.opts.RetryBackoff * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (s store) once(ctx context.Context, fn func(db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return mapError(ctx, fn(s.db.WithContext(ctx)))
}

// mapError translates driver and gorm errors into the domain taxonomy.
// Domain errors pass through untouched.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var ve *domain.ValidationError
	var ce *domain.SlotConflictError
	switch {
	case errors.As(err, &ve), errors.As(err, &ce),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleState),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrDuplicateNumber):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	}

	if isUnavailable(err) || ctx.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P0"):
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "database schema is locked") ||
		strings.Contains(msg, "sqlite_locked") ||
		strings.Contains(msg, "connection refused")
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

// violatesSlotIndex reports whether a unique violation came from the
// active-slot index rather than some other unique column.
func violatesSlotIndex(err error) bool {
	if !isUniqueConstraintError(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == activeSlotIndex
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, activeSlotIndex) || strings.Contains(msg, "booking_slots.")
}

func violatesIdempotencyKey(err error) bool {
	if !isUniqueConstraintError(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == idempotencyKeyIndex
	}
	return strings.Contains(strings.ToLower(err.Error()), "idempotency_key")
}

func violatesBookingNumber(err error) bool {
	if !isUniqueConstraintError(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == bookingNumberIndex
	}
	return strings.Contains(strings.ToLower(err.Error()), "booking_number")
}
