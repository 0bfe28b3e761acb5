package repository

import (
	"context"
	"sort"
	"time"

	"groundbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	store
	dates *dateLocks
}

func NewBookingRepository(db *gorm.DB, opts Options) *BookingRepository {
	return &BookingRepository{store: newStore(db, opts), dates: newDateLocks()}
}

// NewBooking is everything Create persists in one transaction.
type NewBooking struct {
	Booking  *domain.Booking
	Customer domain.Customer
	Claims   []SlotClaim
	// HoldToken converts a live hold into the booking's slots.
	HoldToken string
}

// ListFilter selects bookings by date range and status. Empty fields match all.
type ListFilter struct {
	From     string
	To       string
	Statuses []domain.BookingStatus
	Limit    int
	Offset   int
}

// Occupancy is one active slot row on a date.
type Occupancy struct {
	Hour   int
	Status domain.BookingStatus
	Held   bool
}

// Create reserves the slots, inserts the customer and the booking, and
// attaches the slots, all or nothing.
func (r *BookingRepository) Create(ctx context.Context, nb NewBooking) (*domain.Booking, error) {
	b := nb.Booking
	release, err := r.dates.acquire(ctx, b.BookingDate)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *domain.Booking
	err = r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			slots, err := reserve(tx, reserveRequest{
				Date:      b.BookingDate,
				Claims:    nb.Claims,
				Now:       b.CreatedAt,
				AdoptHold: nb.HoldToken,
			})
			if err != nil {
				return err
			}

			cm := customerModel{
				Name:      nb.Customer.Name,
				Phone:     nb.Customer.Phone,
				Email:     strPtr(nb.Customer.Email),
				CreatedAt: b.CreatedAt,
			}
			if err := tx.Create(&cm).Error; err != nil {
				return err
			}

			b.CustomerID = cm.ID
			bm := toBookingModel(b)
			bm.Version = 1
			if err := tx.Create(&bm).Error; err != nil {
				return err
			}

			ids := make([]int64, 0, len(slots))
			for i := range slots {
				slots[i].BookingID = &bm.ID
				ids = append(ids, slots[i].ID)
			}
			if err := tx.Model(&slotModel{}).Where("id IN ?", ids).Update("booking_id", bm.ID).Error; err != nil {
				return err
			}

			created = toDomainBooking(bm)
			created.Customer = toDomainCustomer(cm)
			created.Slots = toDomainSlots(slots)
			return nil
		})
	})
	if err != nil {
		return nil, r.translateClaimError(ctx, err, b.BookingDate, nb.Claims)
	}
	return created, nil
}

// Hold claims hours for a standalone reservation that expires at expiresAt.
func (r *BookingRepository) Hold(ctx context.Context, date string, claims []SlotClaim, token string, now, expiresAt time.Time) error {
	release, err := r.dates.acquire(ctx, date)
	if err != nil {
		return err
	}
	defer release()

	exp := expiresAt.UTC()
	err = r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			_, err := reserve(tx, reserveRequest{
				Date:          date,
				Claims:        claims,
				Now:           now,
				HoldToken:     token,
				HoldExpiresAt: &exp,
			})
			return err
		})
	})
	if err != nil {
		return r.translateClaimError(ctx, err, date, claims)
	}
	return nil
}

// ReleaseHold deactivates an unattached hold and returns its date. Unknown
// or already released tokens report domain.ErrNotFound.
func (r *BookingRepository) ReleaseHold(ctx context.Context, token string) (string, error) {
	var date string
	err := r.write(ctx, func(db *gorm.DB) error {
		var row slotModel
		if err := db.Where("hold_token = ? AND booking_id IS NULL AND active = ?", token, true).
			First(&row).Error; err != nil {
			return err
		}
		date = row.SlotDate
		return db.Model(&slotModel{}).
			Where("hold_token = ? AND booking_id IS NULL AND active = ?", token, true).
			Update("active", false).Error
	})
	if err != nil {
		return "", err
	}
	return date, nil
}

func (r *BookingRepository) translateClaimError(ctx context.Context, err error, date string, claims []SlotClaim) error {
	switch {
	case violatesSlotIndex(err):
		hours := make([]int, 0, len(claims))
		for _, c := range claims {
			hours = append(hours, c.Hour)
		}
		var conflict *domain.SlotConflictError
		qerr := r.once(ctx, func(db *gorm.DB) error {
			var err error
			conflict, err = activeConflicts(db, date, hours)
			return err
		})
		if qerr != nil {
			return &domain.SlotConflictError{Date: date, Hours: uniqueSorted(hours)}
		}
		return conflict
	case violatesIdempotencyKey(err):
		return ErrDuplicateRequest
	case violatesBookingNumber(err):
		return ErrDuplicateNumber
	}
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getOne(ctx, "booking_get", "id = ?", id)
}

func (r *BookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	return r.getOne(ctx, "booking_get_by_number", "booking_number = ?", number)
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	return r.getOne(ctx, "booking_get_by_key", "idempotency_key = ?", key)
}

func (r *BookingRepository) getOne(ctx context.Context, op, cond string, arg any) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.read(ctx, op, func(db *gorm.DB) error {
		var m bookingModel
		if err := db.Where(cond, arg).First(&m).Error; err != nil {
			return err
		}
		list, err := loadDetails(db, []bookingModel{m})
		if err != nil {
			return err
		}
		out = list[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns matching bookings ordered by date then id, with the total
// count ignoring paging.
func (r *BookingRepository) List(ctx context.Context, f ListFilter) ([]*domain.Booking, int64, error) {
	var out []*domain.Booking
	var total int64
	err := r.read(ctx, "booking_list", func(db *gorm.DB) error {
		q := db.Model(&bookingModel{})
		if f.From != "" {
			q = q.Where("booking_date >= ?", f.From)
		}
		if f.To != "" {
			q = q.Where("booking_date <= ?", f.To)
		}
		if len(f.Statuses) > 0 {
			statuses := make([]string, 0, len(f.Statuses))
			for _, s := range f.Statuses {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status IN ?", statuses)
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}

		q = q.Order("booking_date ASC").Order("id ASC")
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		if f.Offset > 0 {
			q = q.Offset(f.Offset)
		}

		var models []bookingModel
		if err := q.Find(&models).Error; err != nil {
			return err
		}
		var err error
		out, err = loadDetails(db, models)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// OccupancyFor lists the live claims on date: booked slots and unexpired holds.
func (r *BookingRepository) OccupancyFor(ctx context.Context, date string, now time.Time) ([]Occupancy, error) {
	type row struct {
		SlotHour      int
		BookingID     *int64
		HoldExpiresAt *time.Time
		Status        *string
	}

	var rows []row
	err := r.read(ctx, "slot_occupancy", func(db *gorm.DB) error {
		return db.Table("booking_slots AS s").
			Select("s.slot_hour, s.booking_id, s.hold_expires_at, b.status").
			Joins("LEFT JOIN bookings AS b ON b.id = s.booking_id").
			Where("s.slot_date = ? AND s.active = ?", date, true).
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	out := make([]Occupancy, 0, len(rows))
	for _, rw := range rows {
		if rw.BookingID == nil {
			if rw.HoldExpiresAt == nil || !rw.HoldExpiresAt.After(now) {
				continue
			}
			out = append(out, Occupancy{Hour: rw.SlotHour, Status: domain.BookingPending, Held: true})
			continue
		}
		if rw.Status == nil {
			continue
		}
		out = append(out, Occupancy{Hour: rw.SlotHour, Status: domain.BookingStatus(*rw.Status)})
	}
	return out, nil
}

// Apply runs fn against the locked booking and persists the result with an
// optimistic version check. expectedVersion 0 skips the caller-side check.
// New payments and extra charges (ID 0) appended by fn are inserted, the
// remaining balance is recomputed from the ledger, and slots are released
// when the booking moves to cancelled.
func (r *BookingRepository) Apply(ctx context.Context, id, expectedVersion int64, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var m bookingModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
				return err
			}
			if expectedVersion > 0 && m.Version != expectedVersion {
				return domain.ErrStaleState
			}

			list, err := loadDetails(tx, []bookingModel{m})
			if err != nil {
				return err
			}
			b := list[0]
			prev := b.Status

			if err := fn(b); err != nil {
				return err
			}

			for i := range b.Payments {
				p := &b.Payments[i]
				if p.ID != 0 {
					continue
				}
				pm := paymentModel{BookingID: b.ID, Amount: p.Amount, Method: p.Method, ProofRef: strPtr(p.ProofRef), CreatedAt: p.CreatedAt}
				if err := tx.Create(&pm).Error; err != nil {
					return err
				}
				*p = toDomainPayment(pm)
			}
			for i := range b.ExtraCharges {
				c := &b.ExtraCharges[i]
				if c.ID != 0 {
					continue
				}
				cm := extraChargeModel{BookingID: b.ID, Amount: c.Amount, Description: strPtr(c.Description), CreatedAt: c.CreatedAt}
				if err := tx.Create(&cm).Error; err != nil {
					return err
				}
				*c = toDomainCharge(cm)
			}
			b.RemainingPayment = b.ComputeRemaining()
			if b.UpdatedAt.Equal(m.UpdatedAt) {
				b.UpdatedAt = time.Now().UTC()
			}

			next := toBookingModel(b)
			res := tx.Model(&bookingModel{}).
				Where("id = ? AND version = ?", m.ID, m.Version).
				Updates(map[string]any{
					"status":                   next.Status,
					"admin_notes":              next.AdminNotes,
					"cancellation_reason":      next.CancellationReason,
					"remaining_payment":        next.RemainingPayment,
					"remaining_payment_method": next.RemainingPaymentMethod,
					"remaining_payment_proof":  next.RemainingPaymentProof,
					"approved_at":              next.ApprovedAt,
					"completed_at":             next.CompletedAt,
					"cancelled_at":             next.CancelledAt,
					"pending_expires_at":       next.PendingExpiresAt,
					"version":                  m.Version + 1,
					"updated_at":               b.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrStaleState
			}
			b.Version = m.Version + 1

			if prev != domain.BookingCancelled && b.Status == domain.BookingCancelled {
				if err := tx.Model(&slotModel{}).
					Where("booking_id = ? AND active = ?", b.ID, true).
					Update("active", false).Error; err != nil {
					return err
				}
			}

			out = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the booking with its slots and ledger rows, and the
// customer once it has no bookings left. The removed booking is returned.
func (r *BookingRepository) Delete(ctx context.Context, id int64) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.write(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var m bookingModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
				return err
			}
			list, err := loadDetails(tx, []bookingModel{m})
			if err != nil {
				return err
			}
			out = list[0]

			if err := tx.Where("booking_id = ?", id).Delete(&paymentModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("booking_id = ?", id).Delete(&extraChargeModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("booking_id = ?", id).Delete(&slotModel{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&bookingModel{}, id).Error; err != nil {
				return err
			}

			var left int64
			if err := tx.Model(&bookingModel{}).Where("customer_id = ?", m.CustomerID).Count(&left).Error; err != nil {
				return err
			}
			if left == 0 {
				return tx.Delete(&customerModel{}, m.CustomerID).Error
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpiredPendingIDs lists pending bookings whose pending window closed before now.
func (r *BookingRepository) ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var models []bookingModel
	err := r.read(ctx, "booking_expired_pending", func(db *gorm.DB) error {
		return db.Select("id", "pending_expires_at").
			Where("status = ? AND pending_expires_at IS NOT NULL", string(domain.BookingPending)).
			Find(&models).Error
	})
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	var ids []int64
	for _, m := range models {
		if !m.PendingExpiresAt.After(now) {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// ApprovedOnOrBefore lists approved bookings dated on or before date.
func (r *BookingRepository) ApprovedOnOrBefore(ctx context.Context, date string) ([]*domain.Booking, error) {
	list, _, err := r.List(ctx, ListFilter{To: date, Statuses: []domain.BookingStatus{domain.BookingApproved}})
	return list, err
}

// PurgeExpiredHolds deactivates unattached holds that expired before now.
func (r *BookingRepository) PurgeExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := r.write(ctx, func(db *gorm.DB) error {
		var holds []slotModel
		if err := db.Select("id", "hold_expires_at").
			Where("booking_id IS NULL AND active = ?", true).
			Find(&holds).Error; err != nil {
			return err
		}

		now := now.UTC()
		var ids []int64
		for _, h := range holds {
			if h.HoldExpiresAt == nil || !h.HoldExpiresAt.After(now) {
				ids = append(ids, h.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		res := db.Model(&slotModel{}).Where("id IN ? AND booking_id IS NULL", ids).Update("active", false)
		purged = res.RowsAffected
		return res.Error
	})
	return purged, err
}

func loadDetails(db *gorm.DB, models []bookingModel) ([]*domain.Booking, error) {
	out := make([]*domain.Booking, 0, len(models))
	if len(models) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(models))
	customerIDs := make([]int64, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
		customerIDs = append(customerIDs, m.CustomerID)
	}

	var customers []customerModel
	if err := db.Where("id IN ?", customerIDs).Find(&customers).Error; err != nil {
		return nil, err
	}
	var slots []slotModel
	if err := db.Where("booking_id IN ?", ids).Order("slot_hour ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	var payments []paymentModel
	if err := db.Where("booking_id IN ?", ids).Order("id ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	var charges []extraChargeModel
	if err := db.Where("booking_id IN ?", ids).Order("id ASC").Find(&charges).Error; err != nil {
		return nil, err
	}

	byCustomer := make(map[int64]customerModel, len(customers))
	for _, c := range customers {
		byCustomer[c.ID] = c
	}

	index := make(map[int64]*domain.Booking, len(models))
	for _, m := range models {
		b := toDomainBooking(m)
		if c, ok := byCustomer[m.CustomerID]; ok {
			b.Customer = toDomainCustomer(c)
		}
		b.Slots = []domain.BookingSlot{}
		index[m.ID] = b
		out = append(out, b)
	}
	for _, s := range slots {
		if s.BookingID == nil {
			continue
		}
		if b, ok := index[*s.BookingID]; ok {
			b.Slots = append(b.Slots, toDomainSlot(s))
		}
	}
	for _, p := range payments {
		if b, ok := index[p.BookingID]; ok {
			b.Payments = append(b.Payments, toDomainPayment(p))
		}
	}
	for _, c := range charges {
		if b, ok := index[c.BookingID]; ok {
			b.ExtraCharges = append(b.ExtraCharges, toDomainCharge(c))
		}
	}
	return out, nil
}

func toDomainSlots(models []slotModel) []domain.BookingSlot {
	out := make([]domain.BookingSlot, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainSlot(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotHour < out[j].SlotHour })
	return out
}
