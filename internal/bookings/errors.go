package bookings

import (
	"errors"
	"fmt"
)

// Caller-facing failures. Classify with errors.Is.
var (
	ErrSlotUnavailable = errors.New("bookings: slot unavailable")
	ErrResourceBusy    = errors.New("bookings: resource busy")
	ErrInvalidState    = errors.New("bookings: invalid state")
	ErrForbidden       = errors.New("bookings: forbidden")
	ErrValidation      = errors.New("bookings: validation failed")
	ErrNotFound        = errors.New("bookings: not found")
)

// Repository-level failures translated by the Manager.
var (
	ErrVersionConflict    = errors.New("bookings: version conflict")
	ErrDuplicateReference = errors.New("bookings: duplicate reference")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bookings: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Classify maps an operation result to a short outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrResourceBusy):
		return "resource_busy"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
