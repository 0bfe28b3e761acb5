package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrStaleState        = errors.New("stale state")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ValidationError names the offending field so callers can point at it.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SlotConflictError lists the requested hours already held by another booking.
type SlotConflictError struct {
	Date  string
	Hours []int
}

func (e *SlotConflictError) Error() string {
	hours := make([]string, 0, len(e.Hours))
	for _, h := range e.Hours {
		hours = append(hours, strconv.Itoa(h))
	}
	return fmt.Sprintf("slot conflict on %s: hours [%s]", e.Date, strings.Join(hours, ","))
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }
