package booking

import (
	"fmt"
	"strings"
	"time"

	"groundbooking/internal/domain"
)

// Transitions mutate b in memory only; the repository persists the result.
// A rejected transition leaves b untouched.

const expiredReason = "pending window expired"

func transitionError(from, to domain.BookingStatus) error {
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}

func approve(b *domain.Booking, notes string, now time.Time) error {
	if b.Status != domain.BookingPending {
		return transitionError(b.Status, domain.BookingApproved)
	}
	b.Status = domain.BookingApproved
	b.ApprovedAt = &now
	b.PendingExpiresAt = nil
	if notes != "" {
		b.AdminNotes = notes
	}
	b.UpdatedAt = now
	return nil
}

func reject(b *domain.Booking, reason string, now time.Time) error {
	if b.Status != domain.BookingPending && b.Status != domain.BookingApproved {
		return transitionError(b.Status, domain.BookingCancelled)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewValidationError("reason", "is required")
	}
	b.Status = domain.BookingCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now
	b.PendingExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

func complete(b *domain.Booking, notes string, now time.Time) error {
	if b.Status != domain.BookingApproved {
		return transitionError(b.Status, domain.BookingCompleted)
	}
	b.Status = domain.BookingCompleted
	b.CompletedAt = &now
	if notes != "" {
		b.AdminNotes = notes
	}
	b.UpdatedAt = now
	return nil
}

// expire cancels a pending booking whose confirmation window closed.
func expire(b *domain.Booking, now time.Time) error {
	if b.Status != domain.BookingPending {
		return transitionError(b.Status, domain.BookingCancelled)
	}
	return reject(b, expiredReason, now)
}

func recordPayment(b *domain.Booking, amount int64, method, proofRef string, now time.Time) error {
	if amount <= 0 {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	if b.Status == domain.BookingCancelled {
		return domain.NewValidationError("status", "cannot record a payment on a cancelled booking")
	}
	remaining := b.ComputeRemaining()
	if amount > remaining {
		return domain.NewValidationError("amount", fmt.Sprintf("exceeds remaining balance of %d", remaining))
	}

	b.Payments = append(b.Payments, domain.Payment{
		BookingID: b.ID,
		Amount:    amount,
		Method:    method,
		ProofRef:  proofRef,
		CreatedAt: now,
	})
	b.RemainingPaymentMethod = method
	b.RemainingPaymentProof = proofRef
	b.RemainingPayment = b.ComputeRemaining()
	b.UpdatedAt = now
	return nil
}

func addExtraCharge(b *domain.Booking, amount int64, description string, now time.Time) error {
	if amount <= 0 {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	if b.Status == domain.BookingCancelled {
		return domain.NewValidationError("status", "cannot add a charge to a cancelled booking")
	}

	b.ExtraCharges = append(b.ExtraCharges, domain.ExtraCharge{
		BookingID:   b.ID,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	})
	b.RemainingPayment = b.ComputeRemaining()
	b.UpdatedAt = now
	return nil
}
