package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the booking engine. Callers match them with errors.Is;
// the message may carry extra detail wrapped around the kind.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrRoomNotFound            = errors.New("room not found")
	ErrRoomTypeMissing         = errors.New("room type missing")
	ErrRoomUnavailable         = errors.New("room unavailable for the selected dates")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrUnauthorized            = errors.New("not allowed to act on this booking")
	ErrInvalidStatusTransition = errors.New("invalid booking status transition")
	ErrPaymentAlreadyExists    = errors.New("payment already processed for this booking")
	ErrAmountMismatch          = errors.New("payment amount does not match booking price")
	ErrInvalidReview           = errors.New("invalid review")
	ErrInvalidCatalogue        = errors.New("invalid catalogue entry")

	// ErrPersistence is matched by every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError wraps a storage failure (connection loss, unexpected
// constraint violation, ...). The engine passes it through untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persist wraps err as a PersistenceError unless it is nil or already a
// domain error kind.
func Persist(op string, err error) error {
	if err == nil || isKind(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func isKind(err error) bool {
	for _, k := range []error{
		ErrNotFound, ErrInvalidDateRange, ErrRoomNotFound, ErrRoomTypeMissing,
		ErrRoomUnavailable, ErrBookingNotFound, ErrUnauthorized,
		ErrInvalidStatusTransition, ErrPaymentAlreadyExists, ErrAmountMismatch,
		ErrInvalidReview,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
