package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateDateRange rejects stays starting before today and stays shorter
// than one night. There is no upper bound on length.
func ValidateDateRange(checkIn, checkOut, today Date) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return fmt.Errorf("%w: check-in and check-out dates are required", ErrInvalidDateRange)
	}
	if checkIn.Before(today) {
		return fmt.Errorf("%w: check-in date cannot be in the past", ErrInvalidDateRange)
	}
	if !checkOut.After(checkIn) {
		return fmt.Errorf("%w: check-out date must be after check-in date", ErrInvalidDateRange)
	}
	return nil
}

// Overlaps compares half-open ranges [aIn, aOut) and [bIn, bOut): a guest
// leaving on day D never collides with one arriving on D.
func Overlaps(aIn, aOut, bIn, bOut Date) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}

// IsRangeAvailable reports whether [checkIn, checkOut) on roomID is free of
// every booking in existing. Cancelled bookings and other rooms are ignored.
func IsRangeAvailable(roomID int64, checkIn, checkOut Date, existing []Booking) bool {
	for _, b := range existing {
		if b.RoomID != roomID || b.Status == StatusCancelled {
			continue
		}
		if Overlaps(checkIn, checkOut, b.CheckIn, b.CheckOut) {
			return false
		}
	}
	return true
}

// PriceScale is the number of fractional digits kept for money.
const PriceScale = 2

// ComputePrice charges the nightly base for every night in [checkIn, checkOut).
// Money is rounded half-to-even at PriceScale digits, both for the base and the total.
func ComputePrice(checkIn, checkOut Date, nightlyBase decimal.Decimal) decimal.Decimal {
	nights := checkIn.DaysUntil(checkOut)
	base := nightlyBase.RoundBank(PriceScale)
	return base.Mul(decimal.NewFromInt(int64(nights))).RoundBank(PriceScale)
}

// Quote is the priced outcome of an availability check.
type Quote struct {
	RoomID      int64           `json:"room_id"`
	CheckIn     Date            `json:"check_in"`
	CheckOut    Date            `json:"check_out"`
	Nights      int             `json:"nights"`
	NightlyRate decimal.Decimal `json:"nightly_rate"`
	Total       decimal.Decimal `json:"total"`
	Available   bool            `json:"available"`
}
