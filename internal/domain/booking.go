package domain

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// SlotsPerDay is the number of bookable hours on one calendar date.
const SlotsPerDay = 24

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ParseBookingStatus converts untrusted input into one of the four known statuses.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingApproved, BookingCancelled, BookingCompleted:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown booking status %q", s))
}

// IsTerminal reports whether no further lifecycle move is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Occupies reports whether a booking in this status holds its slots.
func (s BookingStatus) Occupies() bool {
	return s == BookingPending || s == BookingApproved || s == BookingCompleted
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotBooked    SlotStatus = "booked"
	SlotPast      SlotStatus = "past"
)

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingSlot struct {
	ID          int64  `json:"id"`
	BookingID   int64  `json:"booking_id"`
	SlotDate    string `json:"slot_date"`
	SlotHour    int    `json:"slot_hour"`
	IsNightRate bool   `json:"is_night_rate"`
	HourlyRate  int64  `json:"hourly_rate"`
}

type ExtraCharge struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Payment struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	ProofRef  string    `json:"proof_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking amounts are whole currency units.
type Booking struct {
	ID            int64  `json:"id"`
	BookingNumber string `json:"booking_number"`
	BookingDate   string `json:"booking_date"`
	CustomerID    int64  `json:"customer_id"`

	TotalHours     int   `json:"total_hours"`
	TotalAmount    int64 `json:"total_amount"`
	DiscountAmount int64 `json:"discount_amount"`

	AdvancePayment       int64  `json:"advance_payment"`
	AdvancePaymentMethod string `json:"advance_payment_method,omitempty"`
	AdvancePaymentProof  string `json:"advance_payment_proof,omitempty"`

	RemainingPayment       int64  `json:"remaining_payment"`
	RemainingPaymentMethod string `json:"remaining_payment_method,omitempty"`
	RemainingPaymentProof  string `json:"remaining_payment_proof,omitempty"`

	Status             BookingStatus `json:"status"`
	CustomerNotes      string        `json:"customer_notes,omitempty"`
	AdminNotes         string        `json:"admin_notes,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	IdempotencyKey     string        `json:"-"`
	Version            int64         `json:"version"`

	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	PendingExpiresAt *time.Time `json:"pending_expires_at,omitempty"`

	Customer     *Customer     `json:"customer,omitempty"`
	Slots        []BookingSlot `json:"slots"`
	Payments     []Payment     `json:"payments,omitempty"`
	ExtraCharges []ExtraCharge `json:"extra_charges,omitempty"`
}

// Hours returns the booked hours in ascending order.
func (b *Booking) Hours() []int {
	out := make([]int, 0, len(b.Slots))
	for _, s := range b.Slots {
		out = append(out, s.SlotHour)
	}
	sort.Ints(out)
	return out
}

// ComputeRemaining derives the outstanding balance from the payment ledger:
// total - advance - payments + extra charges.
func (b *Booking) ComputeRemaining() int64 {
	remaining := b.TotalAmount - b.AdvancePayment
	for _, p := range b.Payments {
		remaining -= p.Amount
	}
	for _, c := range b.ExtraCharges {
		remaining += c.Amount
	}
	return remaining
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, NewValidationError("date", "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}
