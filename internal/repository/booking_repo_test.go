package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"groundbooking/internal/database"
	"groundbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (*BookingRepository, *gorm.DB) {
	t.Helper()
	db, err := database.OpenMemory("repo_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return NewBookingRepository(db, Options{Timeout: 5 * time.Second, ReadRetries: 1, RetryBackoff: time.Millisecond}), db
}

var testNow = time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)

func claims(rate int64, hours ...int) []SlotClaim {
	out := make([]SlotClaim, 0, len(hours))
	for _, h := range hours {
		out = append(out, SlotClaim{Hour: h, HourlyRate: rate})
	}
	return out
}

func newBooking(number, date string, hours ...int) NewBooking {
	total := int64(1500 * len(hours))
	return NewBooking{
		Booking: &domain.Booking{
			BookingNumber:    number,
			BookingDate:      date,
			TotalHours:       len(hours),
			TotalAmount:      total,
			RemainingPayment: total,
			Status:           domain.BookingPending,
			CreatedAt:        testNow,
			UpdatedAt:        testNow,
		},
		Customer: domain.Customer{Name: "Asad", Phone: "0300-1234567"},
		Claims:   claims(1500, hours...),
	}
}

func TestCreate_PersistsBookingWithSlots(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 11, 9, 10))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, []int{9, 10, 11}, b.Hours())
	require.NotNil(t, b.Customer)
	assert.Equal(t, "Asad", b.Customer.Name)

	got, err := repo.GetByNumber(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, []int{9, 10, 11}, got.Hours())
	for _, s := range got.Slots {
		assert.Equal(t, b.ID, s.BookingID)
		assert.Equal(t, int64(1500), s.HourlyRate)
	}
}

func TestCreate_ConflictRejectsWholeRequest(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10, 11))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newBooking("BK-2", "2026-03-01", 9, 11, 12))
	var conflict *domain.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int{11}, conflict.Hours)
	assert.True(t, errors.Is(err, domain.ErrSlotConflict))

	var customers, bookings int64
	require.NoError(t, db.Model(&customerModel{}).Count(&customers).Error)
	require.NoError(t, db.Model(&bookingModel{}).Count(&bookings).Error)
	assert.Equal(t, int64(1), customers)
	assert.Equal(t, int64(1), bookings)

	occ, err := repo.OccupancyFor(ctx, "2026-03-01", testNow)
	require.NoError(t, err)
	assert.Len(t, occ, 2)
}

func TestCreate_ConcurrentClaimsAreLinearizable(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nb := newBooking("BK-C"+string(rune('A'+i)), "2026-03-01", 13, 14)
			_, errs[i] = repo.Create(ctx, nb)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var conflict *domain.SlotConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{13, 14}, conflict.Hours)
	}
	assert.Equal(t, 1, wins)
}

// Two repositories over one database model two API instances: their
// in-process date locks are independent, so only row locks and the partial
// unique index keep the claims disjoint.
func TestCreate_SeparateInstancesNeverDoubleBook(t *testing.T) {
	repoA, db := setupRepo(t)
	dbB, err := database.OpenMemory("repo_" + t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(dbB) })
	repoB := NewBookingRepository(dbB, Options{Timeout: 5 * time.Second})
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		repo := repoA
		if i%2 == 1 {
			repo = repoB
		}
		wg.Add(1)
		go func(i int, repo *BookingRepository) {
			defer wg.Done()
			// a client retries StoreUnavailable; every other outcome is final
			for attempt := 1; attempt <= 50; attempt++ {
				_, errs[i] = repo.Create(ctx, newBooking("BK-M"+string(rune('A'+i)), "2026-03-01", 13, 14))
				if !errors.Is(errs[i], domain.ErrStoreUnavailable) {
					return
				}
				time.Sleep(time.Duration(attempt*(i+1)) * time.Millisecond)
			}
		}(i, repo)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var conflict *domain.SlotConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{13, 14}, conflict.Hours)
	}
	assert.Equal(t, 1, wins)

	var active int64
	require.NoError(t, db.Model(&slotModel{}).Where("slot_date = ? AND active = ?", "2026-03-01", true).Count(&active).Error)
	assert.Equal(t, int64(2), active)
}

func TestActiveSlotIndex_RejectsDuplicateActiveRow(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 20))
	require.NoError(t, err)

	// a writer that skipped the guard entirely
	err = db.Create(&slotModel{SlotDate: "2026-03-01", SlotHour: 20, HourlyRate: 2000, Active: true, CreatedAt: testNow}).Error
	require.Error(t, err)
	assert.True(t, violatesSlotIndex(err), err.Error())

	require.NoError(t, db.Create(&slotModel{SlotDate: "2026-03-01", SlotHour: 20, HourlyRate: 2000, Active: false, CreatedAt: testNow}).Error,
		"inactive rows are outside the index")
}

func TestHold_AdoptedByBookingAndExpires(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Hold(ctx, "2026-03-01", claims(1500, 8, 9), "tok-1", testNow, testNow.Add(10*time.Minute)))

	_, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 9))
	var conflict *domain.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int{9}, conflict.Hours)

	nb := newBooking("BK-2", "2026-03-01", 8, 9)
	nb.HoldToken = "tok-1"
	b, err := repo.Create(ctx, nb)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 9}, b.Hours())

	_, err = repo.ReleaseHold(ctx, "tok-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Hold(ctx, "2026-03-01", claims(1500, 20), "tok-2", testNow, testNow.Add(time.Minute)))
	later := newBooking("BK-3", "2026-03-01", 20)
	later.Booking.CreatedAt = testNow.Add(2 * time.Minute)
	_, err = repo.Create(ctx, later)
	require.NoError(t, err, "expired hold must not block")
}

func TestOccupancyFor_ReportsStatuses(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10))
	require.NoError(t, err)
	_, err = repo.Apply(ctx, b.ID, 0, func(b *domain.Booking) error {
		b.Status = domain.BookingApproved
		return nil
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, newBooking("BK-2", "2026-03-01", 11))
	require.NoError(t, err)
	require.NoError(t, repo.Hold(ctx, "2026-03-01", claims(1500, 12), "tok", testNow, testNow.Add(time.Hour)))
	require.NoError(t, repo.Hold(ctx, "2026-03-01", claims(1500, 13), "old", testNow.Add(-time.Hour), testNow.Add(-time.Minute)))

	occ, err := repo.OccupancyFor(ctx, "2026-03-01", testNow)
	require.NoError(t, err)

	byHour := map[int]Occupancy{}
	for _, o := range occ {
		byHour[o.Hour] = o
	}
	assert.Len(t, byHour, 3)
	assert.Equal(t, domain.BookingApproved, byHour[10].Status)
	assert.Equal(t, domain.BookingPending, byHour[11].Status)
	assert.True(t, byHour[12].Held)
}

func TestApply_VersionChecks(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10))
	require.NoError(t, err)

	updated, err := repo.Apply(ctx, b.ID, 1, func(b *domain.Booking) error {
		b.AdminNotes = "ok"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.Apply(ctx, b.ID, 1, func(b *domain.Booking) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStaleState)

	_, err = repo.Apply(ctx, 999, 0, func(b *domain.Booking) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApply_LedgerAndRelease(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10, 11))
	require.NoError(t, err)

	b, err = repo.Apply(ctx, b.ID, 0, func(b *domain.Booking) error {
		b.Payments = append(b.Payments, domain.Payment{Amount: 1000, Method: "cash", CreatedAt: testNow})
		b.ExtraCharges = append(b.ExtraCharges, domain.ExtraCharge{Amount: 200, Description: "balls", CreatedAt: testNow})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000-1000+200), b.RemainingPayment)
	require.Len(t, b.Payments, 1)
	assert.NotZero(t, b.Payments[0].ID)

	_, err = repo.Apply(ctx, b.ID, 0, func(b *domain.Booking) error {
		b.Status = domain.BookingCancelled
		return nil
	})
	require.NoError(t, err)

	occ, err := repo.OccupancyFor(ctx, "2026-03-01", testNow)
	require.NoError(t, err)
	assert.Empty(t, occ)

	_, err = repo.Create(ctx, newBooking("BK-2", "2026-03-01", 10, 11))
	require.NoError(t, err)
}

func TestDelete_RemovesOrphanCustomer(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	b, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "BK-1", deleted.BookingNumber)

	var customers, slots int64
	require.NoError(t, db.Model(&customerModel{}).Count(&customers).Error)
	require.NoError(t, db.Model(&slotModel{}).Count(&slots).Error)
	assert.Zero(t, customers)
	assert.Zero(t, slots)

	_, err = repo.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_FiltersAndPurgeHolds(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newBooking("BK-1", "2026-03-01", 10))
	require.NoError(t, err)
	b2, err := repo.Create(ctx, newBooking("BK-2", "2026-03-02", 10))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newBooking("BK-3", "2026-03-05", 10))
	require.NoError(t, err)
	_, err = repo.Apply(ctx, b2.ID, 0, func(b *domain.Booking) error {
		b.Status = domain.BookingApproved
		return nil
	})
	require.NoError(t, err)

	list, total, err := repo.List(ctx, ListFilter{From: "2026-03-01", To: "2026-03-02"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, _, err = repo.List(ctx, ListFilter{Statuses: []domain.BookingStatus{domain.BookingApproved}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BK-2", list[0].BookingNumber)

	require.NoError(t, repo.Hold(ctx, "2026-03-01", claims(1500, 1), "old", testNow, testNow.Add(time.Minute)))
	purged, err := repo.PurgeExpiredHolds(ctx, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestMapError(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, mapError(ctx, gorm.ErrRecordNotFound), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(ctx, context.DeadlineExceeded), domain.ErrStoreUnavailable)
	assert.ErrorIs(t, mapError(ctx, errors.New("database is locked (5) (SQLITE_BUSY)")), domain.ErrStoreUnavailable)
	assert.ErrorIs(t, mapError(ctx, domain.ErrStaleState), domain.ErrStaleState)
	assert.NoError(t, mapError(ctx, nil))

	assert.True(t, violatesSlotIndex(errors.New("constraint failed: UNIQUE constraint failed: booking_slots.slot_date, booking_slots.slot_hour (2067)")))
	assert.True(t, violatesIdempotencyKey(errors.New("UNIQUE constraint failed: bookings.idempotency_key")))
	assert.False(t, violatesSlotIndex(errors.New("UNIQUE constraint failed: bookings.idempotency_key")))
	assert.True(t, violatesBookingNumber(errors.New("UNIQUE constraint failed: bookings.booking_number")))
	assert.False(t, violatesBookingNumber(errors.New("UNIQUE constraint failed: bookings.idempotency_key")))
	assert.ErrorIs(t, mapError(ctx, errors.New("database table is locked: booking_slots (262)")), domain.ErrStoreUnavailable)
}

func TestRead_RetriesStoreUnavailable(t *testing.T) {
	_, db := setupRepo(t)
	s := newStore(db, Options{Timeout: time.Second, ReadRetries: 2, RetryBackoff: time.Millisecond})

	calls := 0
	err := s.read(context.Background(), "test", func(*gorm.DB) error {
		calls++
		if calls < 3 {
			return context.DeadlineExceeded
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = s.read(context.Background(), "test", func(*gorm.DB) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
