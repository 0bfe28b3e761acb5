package repository

import (
	"time"

	"groundbooking/internal/domain"
)

type customerModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:varchar(120);not null"`
	Phone     string    `gorm:"column:phone;type:varchar(32);not null;index"`
	Email     *string   `gorm:"column:email;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (customerModel) TableName() string { return "customers" }

type bookingModel struct {
	ID            int64  `gorm:"column:id;primaryKey;autoIncrement"`
	BookingNumber string `gorm:"column:booking_number;type:varchar(32);not null;uniqueIndex"`
	BookingDate   string `gorm:"column:booking_date;type:varchar(10);not null;index"`
	CustomerID    int64  `gorm:"column:customer_id;not null;index"`

	TotalHours     int   `gorm:"column:total_hours;not null"`
	TotalAmount    int64 `gorm:"column:total_amount;not null"`
	DiscountAmount int64 `gorm:"column:discount_amount;not null"`

	AdvancePayment       int64   `gorm:"column:advance_payment;not null"`
	AdvancePaymentMethod *string `gorm:"column:advance_payment_method;type:varchar(32)"`
	AdvancePaymentProof  *string `gorm:"column:advance_payment_proof;type:varchar(512)"`

	RemainingPayment       int64   `gorm:"column:remaining_payment;not null"`
	RemainingPaymentMethod *string `gorm:"column:remaining_payment_method;type:varchar(32)"`
	RemainingPaymentProof  *string `gorm:"column:remaining_payment_proof;type:varchar(512)"`

	Status             string  `gorm:"column:status;type:varchar(16);not null;index"`
	CustomerNotes      *string `gorm:"column:customer_notes;type:text"`
	AdminNotes         *string `gorm:"column:admin_notes;type:text"`
	CancellationReason *string `gorm:"column:cancellation_reason;type:text"`
	IdempotencyKey     *string `gorm:"column:idempotency_key;type:varchar(64);uniqueIndex"`
	Version            int64   `gorm:"column:version;not null"`

	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
	ApprovedAt       *time.Time `gorm:"column:approved_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`
	PendingExpiresAt *time.Time `gorm:"column:pending_expires_at;index"`
}

func (bookingModel) TableName() string { return "bookings" }

// slotModel rows are active while their booking is not cancelled or while
// an unattached hold has not expired. The partial unique index on
// (slot_date, slot_hour) WHERE active is created in Migrate.
type slotModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	BookingID     *int64     `gorm:"column:booking_id;index"`
	HoldToken     *string    `gorm:"column:hold_token;type:varchar(36);index"`
	HoldExpiresAt *time.Time `gorm:"column:hold_expires_at"`
	SlotDate      string     `gorm:"column:slot_date;type:varchar(10);not null;index:idx_booking_slots_date_hour"`
	SlotHour      int        `gorm:"column:slot_hour;not null;index:idx_booking_slots_date_hour"`
	IsNightRate   bool       `gorm:"column:is_night_rate;not null"`
	HourlyRate    int64      `gorm:"column:hourly_rate;not null"`
	Active        bool       `gorm:"column:active;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (slotModel) TableName() string { return "booking_slots" }

type extraChargeModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BookingID   int64     `gorm:"column:booking_id;not null;index"`
	Amount      int64     `gorm:"column:amount;not null"`
	Description *string   `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (extraChargeModel) TableName() string { return "extra_charges" }

type paymentModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BookingID int64     `gorm:"column:booking_id;not null;index"`
	Amount    int64     `gorm:"column:amount;not null"`
	Method    string    `gorm:"column:method;type:varchar(32);not null"`
	ProofRef  *string   `gorm:"column:proof_ref;type:varchar(512)"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (paymentModel) TableName() string { return "booking_payments" }

type settingsModel struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	DayRate        int64     `gorm:"column:day_rate;not null"`
	NightRate      int64     `gorm:"column:night_rate;not null"`
	NightStartHour int       `gorm:"column:night_start_hour;not null"`
	NightEndHour   int       `gorm:"column:night_end_hour;not null"`
	UpdatedBy      string    `gorm:"column:updated_by;type:varchar(120)"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (settingsModel) TableName() string { return "rate_settings" }

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toDomainCustomer(m customerModel) *domain.Customer {
	return &domain.Customer{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Email:     strVal(m.Email),
		CreatedAt: m.CreatedAt,
	}
}

func toDomainBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:                     m.ID,
		BookingNumber:          m.BookingNumber,
		BookingDate:            m.BookingDate,
		CustomerID:             m.CustomerID,
		TotalHours:             m.TotalHours,
		TotalAmount:            m.TotalAmount,
		DiscountAmount:         m.DiscountAmount,
		AdvancePayment:         m.AdvancePayment,
		AdvancePaymentMethod:   strVal(m.AdvancePaymentMethod),
		AdvancePaymentProof:    strVal(m.AdvancePaymentProof),
		RemainingPayment:       m.RemainingPayment,
		RemainingPaymentMethod: strVal(m.RemainingPaymentMethod),
		RemainingPaymentProof:  strVal(m.RemainingPaymentProof),
		Status:                 domain.BookingStatus(m.Status),
		CustomerNotes:          strVal(m.CustomerNotes),
		AdminNotes:             strVal(m.AdminNotes),
		CancellationReason:     strVal(m.CancellationReason),
		IdempotencyKey:         strVal(m.IdempotencyKey),
		Version:                m.Version,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
		ApprovedAt:             m.ApprovedAt,
		CompletedAt:            m.CompletedAt,
		CancelledAt:            m.CancelledAt,
		PendingExpiresAt:       m.PendingExpiresAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:                     b.ID,
		BookingNumber:          b.BookingNumber,
		BookingDate:            b.BookingDate,
		CustomerID:             b.CustomerID,
		TotalHours:             b.TotalHours,
		TotalAmount:            b.TotalAmount,
		DiscountAmount:         b.DiscountAmount,
		AdvancePayment:         b.AdvancePayment,
		AdvancePaymentMethod:   strPtr(b.AdvancePaymentMethod),
		AdvancePaymentProof:    strPtr(b.AdvancePaymentProof),
		RemainingPayment:       b.RemainingPayment,
		RemainingPaymentMethod: strPtr(b.RemainingPaymentMethod),
		RemainingPaymentProof:  strPtr(b.RemainingPaymentProof),
		Status:                 string(b.Status),
		CustomerNotes:          strPtr(b.CustomerNotes),
		AdminNotes:             strPtr(b.AdminNotes),
		CancellationReason:     strPtr(b.CancellationReason),
		IdempotencyKey:         strPtr(b.IdempotencyKey),
		Version:                b.Version,
		CreatedAt:              b.CreatedAt,
		UpdatedAt:              b.UpdatedAt,
		ApprovedAt:             b.ApprovedAt,
		CompletedAt:            b.CompletedAt,
		CancelledAt:            b.CancelledAt,
		PendingExpiresAt:       b.PendingExpiresAt,
	}
}

func toDomainSlot(m slotModel) domain.BookingSlot {
	var bookingID int64
	if m.BookingID != nil {
		bookingID = *m.BookingID
	}
	return domain.BookingSlot{
		ID:          m.ID,
		BookingID:   bookingID,
		SlotDate:    m.SlotDate,
		SlotHour:    m.SlotHour,
		IsNightRate: m.IsNightRate,
		HourlyRate:  m.HourlyRate,
	}
}

func toDomainPayment(m paymentModel) domain.Payment {
	return domain.Payment{
		ID:        m.ID,
		BookingID: m.BookingID,
		Amount:    m.Amount,
		Method:    m.Method,
		ProofRef:  strVal(m.ProofRef),
		CreatedAt: m.CreatedAt,
	}
}

func toDomainCharge(m extraChargeModel) domain.ExtraCharge {
	return domain.ExtraCharge{
		ID:          m.ID,
		BookingID:   m.BookingID,
		Amount:      m.Amount,
		Description: strVal(m.Description),
		CreatedAt:   m.CreatedAt,
	}
}

func toDomainSettings(m settingsModel) *domain.RateSettings {
	return &domain.RateSettings{
		DayRate:        m.DayRate,
		NightRate:      m.NightRate,
		NightStartHour: m.NightStartHour,
		NightEndHour:   m.NightEndHour,
		UpdatedBy:      m.UpdatedBy,
		UpdatedAt:      m.UpdatedAt,
	}
}
