package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusConfirmed BookingStatus = "Confirmed"
	StatusCancelled BookingStatus = "Cancelled"
	StatusCompleted BookingStatus = "Completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Booking struct {
	ID        int64           `json:"id"`
	RoomID    int64           `json:"room_id"`
	UserID    string          `json:"user_id"`
	CheckIn   Date            `json:"check_in"`
	CheckOut  Date            `json:"check_out"`
	Price     decimal.Decimal `json:"price"`
	Status    BookingStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func (b Booking) Nights() int { return b.CheckIn.DaysUntil(b.CheckOut) }

// CanCancel applies the cancellation rule: the owner may cancel a Pending
// booking, an administrator may cancel Pending or Confirmed ones.
func (b Booking) CanCancel(requesterID string, isAdmin bool) error {
	if !isAdmin && b.UserID != requesterID {
		return ErrUnauthorized
	}
	switch b.Status {
	case StatusPending:
		return nil
	case StatusConfirmed:
		if isAdmin {
			return nil
		}
		return fmt.Errorf("%w: confirmed bookings can only be cancelled by an administrator", ErrInvalidStatusTransition)
	}
	return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidStatusTransition, b.Status)
}

// CanConfirm reports whether a successful payment may move b to Confirmed.
func (b Booking) CanConfirm() error {
	if b.Status != StatusPending {
		return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidStatusTransition, b.Status)
	}
	return nil
}

// CanComplete reports whether b is a confirmed stay that has ended by today.
func (b Booking) CanComplete(today Date) error {
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidStatusTransition, b.Status)
	}
	if today.Before(b.CheckOut) {
		return fmt.Errorf("%w: stay ends on %s", ErrInvalidStatusTransition, b.CheckOut)
	}
	return nil
}

const PaymentStatusCompleted = "Completed"

type Payment struct {
	ID            int64           `json:"id"`
	BookingID     int64           `json:"booking_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	PaidAt        time.Time       `json:"paid_at"`
}

// TransactionID builds the mock gateway reference for a booking payment.
func TransactionID(bookingID int64, at time.Time) string {
	return fmt.Sprintf("TXN-%s-%d", at.Format("20060102150405"), bookingID)
}
