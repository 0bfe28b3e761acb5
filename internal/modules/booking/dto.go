package booking

import "groundbooking/internal/domain"

type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,max=32"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

type PaymentInput struct {
	AdvancePayment int64  `json:"advance_payment" validate:"gte=0"`
	Method         string `json:"method" validate:"required_with=AdvancePayment,max=32"`
	ProofRef       string `json:"proof_ref" validate:"max=512"`
}

type CreateBookingRequest struct {
	Customer       CustomerInput `json:"customer"`
	Date           string        `json:"date" validate:"required"`
	Hours          []int         `json:"hours" validate:"required,min=1,max=24,dive,gte=0,lte=23"`
	Payment        PaymentInput  `json:"payment"`
	DiscountAmount int64         `json:"discount_amount" validate:"gte=0"`
	Notes          string        `json:"notes" validate:"max=2000"`
	HoldToken      string        `json:"hold_token" validate:"omitempty,uuid"`
	IdempotencyKey string        `json:"idempotency_key" validate:"omitempty,max=64"`
}

type ReserveRequest struct {
	Date  string `json:"date" validate:"required"`
	Hours []int  `json:"hours" validate:"required,min=1,max=24,dive,gte=0,lte=23"`
}

type ReserveResult struct {
	Accepted  bool   `json:"accepted"`
	Conflicts []int  `json:"conflicts"`
	HoldToken string `json:"hold_token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ActionRequest carries the optional fields shared by admin transitions.
type ActionRequest struct {
	Notes           string `json:"notes" validate:"max=2000"`
	Reason          string `json:"reason" validate:"max=2000"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

type PaymentRequest struct {
	Amount          int64  `json:"amount" validate:"gt=0"`
	Method          string `json:"method" validate:"required,max=32"`
	ProofRef        string `json:"proof_ref" validate:"max=512"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

type ChargeRequest struct {
	Amount          int64  `json:"amount" validate:"gt=0"`
	Description     string `json:"description" validate:"max=500"`
	ExpectedVersion int64  `json:"expected_version" validate:"gte=0"`
}

type ListRequest struct {
	From   string
	To     string
	Status *domain.BookingStatus
	Limit  int
	Offset int
}
