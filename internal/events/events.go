// Package events fans booking state changes out to observers: the log,
// live websocket viewers, the message bus and the admin Telegram chat.
package events

import (
	"context"
	"log"
	"time"

	"groundbooking/internal/domain"
)

type Type string

const (
	BookingCreated   Type = "booking_created"
	BookingApproved  Type = "booking_approved"
	BookingRejected  Type = "booking_rejected"
	BookingCompleted Type = "booking_completed"
	PaymentRecorded  Type = "payment_recorded"
	ExtraChargeAdded Type = "extra_charge_added"
	BookingExpired   Type = "booking_expired"
	BookingDeleted   Type = "booking_deleted"
	SlotsHeld        Type = "slots_held"
	SlotsReleased    Type = "slots_released"
)

type Event struct {
	Type          Type                 `json:"type"`
	BookingID     int64                `json:"booking_id,omitempty"`
	BookingNumber string               `json:"booking_number,omitempty"`
	Date          string               `json:"date"`
	Hours         []int                `json:"hours"`
	Status        domain.BookingStatus `json:"status,omitempty"`
	Amount        int64                `json:"amount,omitempty"`
	Remaining     int64                `json:"remaining,omitempty"`
	CustomerName  string               `json:"customer_name,omitempty"`
	Actor         string               `json:"actor,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// FromBooking fills the booking fields of an event of type t.
func FromBooking(t Type, b *domain.Booking, actor string, at time.Time) Event {
	e := Event{
		Type:          t,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		Date:          b.BookingDate,
		Hours:         b.Hours(),
		Status:        b.Status,
		Amount:        b.TotalAmount,
		Remaining:     b.RemainingPayment,
		Actor:         actor,
		OccurredAt:    at,
	}
	if b.Customer != nil {
		e.CustomerName = b.Customer.Name
	}
	return e
}

// Emitter delivers events. Implementations log delivery failures and never
// report them to the caller: a committed booking change is not undone
// because an observer was unreachable.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Multi emits to every non-nil emitter in order.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(ctx, e)
		}
	}
}

type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, e Event) {
	log.Printf("booking_event type=%s booking_id=%d number=%s date=%s hours=%v status=%s amount=%d remaining=%d actor=%s",
		e.Type, e.BookingID, e.BookingNumber, e.Date, e.Hours, e.Status, e.Amount, e.Remaining, e.Actor)
}
