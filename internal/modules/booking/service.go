// Package booking runs the booking lifecycle: creation with conflict-safe
// slot reservation, admin transitions, payments and charges, and the
// housekeeping that expires or completes bookings over time.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"groundbooking/internal/domain"
	"groundbooking/internal/events"
	"groundbooking/internal/modules/rate"
	"groundbooking/internal/pkg/clock"
	"groundbooking/internal/pkg/validator"
	"groundbooking/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	systemActor      = "system"
	numberAttempts   = 3
)

type Config struct {
	// PendingTTL bounds how long a pending booking holds its slots; 0 disables expiry.
	PendingTTL time.Duration
	HoldTTL    time.Duration
}

type Service struct {
	repo     Repository
	settings SettingsReader
	events   events.Emitter
	clock    clock.Clock
	cfg      Config

	newNumber func(day time.Time) string
}

func NewService(repo Repository, settings SettingsReader, emitter events.Emitter, clk clock.Clock, cfg Config) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}
	return &Service{repo: repo, settings: settings, events: emitter, clock: clk, cfg: cfg, newNumber: newBookingNumber}
}

// Create validates and prices the request and stores it as a pending
// booking. created is false when an earlier booking with the same
// idempotency key is returned instead.
func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (b *domain.Booking, created bool, err error) {
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.Customer.Email = strings.TrimSpace(req.Customer.Email)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := validator.Check(req); err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			return existing, false, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
	}

	now := s.clock.Now()
	day, err := s.checkSlots(req.Date, req.Hours, now)
	if err != nil {
		return nil, false, err
	}

	rs, err := s.settings.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	rates, gross := rate.Quote(req.Hours, rs)

	if req.DiscountAmount > gross {
		return nil, false, domain.NewValidationError("discount_amount", fmt.Sprintf("cannot exceed the slot total of %d", gross))
	}
	total := gross - req.DiscountAmount
	if req.Payment.AdvancePayment > total {
		return nil, false, domain.NewValidationError("payment.advance_payment", fmt.Sprintf("cannot exceed the booking total of %d", total))
	}

	booking := &domain.Booking{
		BookingDate:          req.Date,
		TotalHours:           len(rates),
		TotalAmount:          total,
		DiscountAmount:       req.DiscountAmount,
		AdvancePayment:       req.Payment.AdvancePayment,
		AdvancePaymentMethod: req.Payment.Method,
		AdvancePaymentProof:  req.Payment.ProofRef,
		RemainingPayment:     total - req.Payment.AdvancePayment,
		Status:               domain.BookingPending,
		CustomerNotes:        req.Notes,
		IdempotencyKey:       req.IdempotencyKey,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if s.cfg.PendingTTL > 0 {
		exp := now.Add(s.cfg.PendingTTL)
		booking.PendingExpiresAt = &exp
	}

	nb := repository.NewBooking{
		Booking: booking,
		Customer: domain.Customer{
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
		},
		Claims:    claimsFor(rates),
		HoldToken: req.HoldToken,
	}
	for attempt := 1; ; attempt++ {
		booking.BookingNumber = s.newNumber(day)
		b, err = s.repo.Create(ctx, nb)
		if !errors.Is(err, repository.ErrDuplicateNumber) || attempt == numberAttempts {
			break
		}
		log.Printf("booking_number_collision number=%s attempt=%d", booking.BookingNumber, attempt)
	}
	if errors.Is(err, repository.ErrDuplicateRequest) {
		existing, gerr := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		return existing, false, gerr
	}
	if err != nil {
		return nil, false, err
	}

	s.events.Emit(ctx, events.FromBooking(events.BookingCreated, b, "", now))
	return b, true, nil
}

// Reserve places a short-lived hold on hours so a customer can finish
// filling in the booking form. Conflicts are reported in the result.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (ReserveResult, error) {
	if err := validator.Check(req); err != nil {
		return ReserveResult{}, err
	}
	now := s.clock.Now()
	if _, err := s.checkSlots(req.Date, req.Hours, now); err != nil {
		return ReserveResult{}, err
	}

	rs, err := s.settings.Get(ctx)
	if err != nil {
		return ReserveResult{}, err
	}
	rates, _ := rate.Quote(req.Hours, rs)

	token := uuid.NewString()
	expiresAt := now.Add(s.cfg.HoldTTL)
	err = s.repo.Hold(ctx, req.Date, claimsFor(rates), token, now, expiresAt)

	var conflict *domain.SlotConflictError
	if errors.As(err, &conflict) {
		return ReserveResult{Accepted: false, Conflicts: conflict.Hours}, nil
	}
	if err != nil {
		return ReserveResult{}, err
	}

	hours := make([]int, 0, len(rates))
	for _, r := range rates {
		hours = append(hours, r.Hour)
	}
	s.events.Emit(ctx, events.Event{Type: events.SlotsHeld, Date: req.Date, Hours: hours, Status: domain.BookingPending, OccurredAt: now})

	return ReserveResult{
		Accepted:  true,
		Conflicts: []int{},
		HoldToken: token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) ReleaseHold(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return domain.NewValidationError("hold_token", "must be a valid token")
	}
	date, err := s.repo.ReleaseHold(ctx, token)
	if err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{Type: events.SlotsReleased, Date: date, OccurredAt: s.clock.Now()})
	return nil
}

func (s *Service) Approve(ctx context.Context, id int64, req ActionRequest, actor string) (*domain.Booking, error) {
	return s.transition(ctx, id, req.ExpectedVersion, actor, events.BookingApproved, func(b *domain.Booking, now time.Time) error {
		return approve(b, req.Notes, now)
	})
}

// Reject cancels a pending or approved booking and frees its slots.
func (s *Service) Reject(ctx context.Context, id int64, req ActionRequest, actor string) (*domain.Booking, error) {
	return s.transition(ctx, id, req.ExpectedVersion, actor, events.BookingRejected, func(b *domain.Booking, now time.Time) error {
		return reject(b, req.Reason, now)
	})
}

func (s *Service) Complete(ctx context.Context, id int64, req ActionRequest, actor string) (*domain.Booking, error) {
	return s.transition(ctx, id, req.ExpectedVersion, actor, events.BookingCompleted, func(b *domain.Booking, now time.Time) error {
		return complete(b, req.Notes, now)
	})
}

func (s *Service) RecordPayment(ctx context.Context, id int64, req PaymentRequest, actor string) (*domain.Booking, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	b, err := s.mutate(ctx, id, req.ExpectedVersion, func(b *domain.Booking, now time.Time) error {
		return recordPayment(b, req.Amount, req.Method, req.ProofRef, now)
	})
	if err != nil {
		return nil, err
	}

	e := events.FromBooking(events.PaymentRecorded, b, actor, s.clock.Now())
	e.Amount = req.Amount
	s.events.Emit(ctx, e)
	return b, nil
}

func (s *Service) AddExtraCharge(ctx context.Context, id int64, req ChargeRequest, actor string) (*domain.Booking, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	b, err := s.mutate(ctx, id, req.ExpectedVersion, func(b *domain.Booking, now time.Time) error {
		return addExtraCharge(b, req.Amount, req.Description, now)
	})
	if err != nil {
		return nil, err
	}

	e := events.FromBooking(events.ExtraChargeAdded, b, actor, s.clock.Now())
	e.Amount = req.Amount
	s.events.Emit(ctx, e)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, domain.NewValidationError("number", "is required")
	}
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]*domain.Booking, int64, error) {
	loc := s.clock.Now().Location()
	for field, v := range map[string]string{"from": req.From, "to": req.To} {
		if v == "" {
			continue
		}
		if _, err := domain.ParseDate(v, loc); err != nil {
			return nil, 0, domain.NewValidationError(field, "must be formatted as YYYY-MM-DD")
		}
	}

	f := repository.ListFilter{From: req.From, To: req.To, Limit: req.Limit, Offset: req.Offset}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if req.Status != nil {
		f.Statuses = []domain.BookingStatus{*req.Status}
	}
	return s.repo.List(ctx, f)
}

// Delete removes a booking and its ledger entirely.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	b, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.events.Emit(ctx, events.FromBooking(events.BookingDeleted, b, actor, s.clock.Now()))
	return nil
}

// ExpirePending cancels pending bookings whose window has closed. Bookings
// approved or changed concurrently are skipped.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.repo.ExpiredPendingIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		b, err := s.repo.Apply(ctx, id, 0, func(b *domain.Booking) error {
			return expire(b, now)
		})
		switch {
		case err == nil:
			expired++
			s.events.Emit(ctx, events.FromBooking(events.BookingExpired, b, systemActor, now))
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStaleState), errors.Is(err, domain.ErrNotFound):
			log.Printf("booking_expire_skipped booking_id=%d reason=%v", id, err)
		default:
			return expired, err
		}
	}
	return expired, nil
}

// CompletePlayed completes approved bookings whose last hour has ended.
func (s *Service) CompletePlayed(ctx context.Context) (int, error) {
	now := s.clock.Now()
	list, err := s.repo.ApprovedOnOrBefore(ctx, now.Format(domain.DateLayout))
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range list {
		end, ok := lastSlotEnd(b, now.Location())
		if !ok || now.Before(end) {
			continue
		}
		done, err := s.repo.Apply(ctx, b.ID, b.Version, func(b *domain.Booking) error {
			return complete(b, "", now)
		})
		switch {
		case err == nil:
			completed++
			s.events.Emit(ctx, events.FromBooking(events.BookingCompleted, done, systemActor, now))
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStaleState), errors.Is(err, domain.ErrNotFound):
			log.Printf("booking_complete_skipped booking_id=%d reason=%v", b.ID, err)
		default:
			return completed, err
		}
	}
	return completed, nil
}

func (s *Service) PurgeHolds(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredHolds(ctx, s.clock.Now())
}

func (s *Service) transition(ctx context.Context, id, expectedVersion int64, actor string, t events.Type, fn func(*domain.Booking, time.Time) error) (*domain.Booking, error) {
	b, err := s.mutate(ctx, id, expectedVersion, fn)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.FromBooking(t, b, actor, s.clock.Now()))
	return b, nil
}

func (s *Service) mutate(ctx context.Context, id, expectedVersion int64, fn func(*domain.Booking, time.Time) error) (*domain.Booking, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("id", "must be a positive integer")
	}
	if expectedVersion < 0 {
		return nil, domain.NewValidationError("expected_version", "must not be negative")
	}
	now := s.clock.Now()
	return s.repo.Apply(ctx, id, expectedVersion, func(b *domain.Booking) error {
		return fn(b, now)
	})
}

// checkSlots validates a date and hour set against the current time: the
// date may not be in the past, hours must be distinct, and hours of today
// that have already started are rejected.
func (s *Service) checkSlots(date string, hours []int, now time.Time) (time.Time, error) {
	day, err := domain.ParseDate(date, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return time.Time{}, domain.NewValidationError("date", "date is in the past")
	}

	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if !domain.ValidHour(h) {
			return time.Time{}, domain.NewValidationError("hours", fmt.Sprintf("hour %d is outside 0-23", h))
		}
		if seen[h] {
			return time.Time{}, domain.NewValidationError("hours", fmt.Sprintf("hour %d is listed more than once", h))
		}
		seen[h] = true
		if day.Equal(today) && h < now.Hour() {
			return time.Time{}, domain.NewValidationError("hours", fmt.Sprintf("hour %d has already passed", h))
		}
	}
	return day, nil
}

func claimsFor(rates []rate.Rate) []repository.SlotClaim {
	out := make([]repository.SlotClaim, 0, len(rates))
	for _, r := range rates {
		out = append(out, repository.SlotClaim{Hour: r.Hour, IsNightRate: r.IsNightRate, HourlyRate: r.Amount})
	}
	return out
}

// newBookingNumber returns "BK-YYYYMMDD-XXXXXX" for the play date.
func newBookingNumber(day time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "BK-" + day.Format("20060102") + "-" + suffix
}

// lastSlotEnd is the instant the booking's latest hour finishes.
func lastSlotEnd(b *domain.Booking, loc *time.Location) (time.Time, bool) {
	hours := b.Hours()
	if len(hours) == 0 {
		return time.Time{}, false
	}
	day, err := domain.ParseDate(b.BookingDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hours[len(hours)-1]+1, 0, 0, 0, loc), true
}
