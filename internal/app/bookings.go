package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bookify/internal/adapters/observability"
	"bookify/internal/domain"
)

// BookingService owns every booking state change: creation, cancellation,
// payment confirmation and stay completion.
type BookingService struct {
	tx   domain.TxManager
	repo domain.Repository
	loc  *time.Location
	now  func() time.Time
}

func NewBookingService(tx domain.TxManager, repo domain.Repository, loc *time.Location) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{tx: tx, repo: repo, loc: loc, now: time.Now}
}

// WithClock replaces the wall clock; used by tests and batch jobs.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Today is the current calendar day in the hotel's time zone.
func (s *BookingService) Today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

func (s *BookingService) CreateBooking(ctx context.Context, roomID int64, userID string, checkIn, checkOut domain.Date) (domain.Booking, error) {
	if userID == "" {
		return domain.Booking{}, domain.ErrUnauthorized
	}
	var out domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.BookingStore) error {
		if err := st.LockRoom(ctx, roomID); err != nil {
			return err
		}
		room, err := st.RoomWithType(ctx, roomID)
		if err != nil {
			return err
		}
		if room.Type == nil {
			return domain.ErrRoomTypeMissing
		}
		if err := domain.ValidateDateRange(checkIn, checkOut, s.Today()); err != nil {
			return err
		}
		existing, err := st.ActiveBookingsForRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !domain.IsRangeAvailable(roomID, checkIn, checkOut, existing) {
			return domain.ErrRoomUnavailable
		}
		b := domain.Booking{
			RoomID:    roomID,
			UserID:    userID,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Price:     domain.ComputePrice(checkIn, checkOut, room.Type.BasePrice),
			Status:    domain.StatusPending,
			CreatedAt: s.now().UTC(),
		}
		out, err = st.InsertBooking(ctx, b)
		return err
	})
	observability.ObserveBooking("create", outcome(err))
	if err != nil {
		logFailure(err, "create booking", roomID, 0)
		return domain.Booking{}, err
	}
	log.Info().
		Int64("booking_id", out.ID).
		Int64("room_id", roomID).
		Str("check_in", checkIn.String()).
		Str("check_out", checkOut.String()).
		Str("price", out.Price.StringFixed(domain.PriceScale)).
		Msg("booking created")
	return out, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, requesterID string, isAdmin bool) (domain.Booking, error) {
	var out domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.BookingStore) error {
		b, err := st.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := b.CanCancel(requesterID, isAdmin); err != nil {
			return err
		}
		if err := st.UpdateBookingStatus(ctx, b.ID, domain.StatusCancelled); err != nil {
			return err
		}
		b.Status = domain.StatusCancelled
		out = b
		return nil
	})
	op := "cancel"
	if isAdmin {
		op = "admin_cancel"
	}
	observability.ObserveBooking(op, outcome(err))
	if err != nil {
		logFailure(err, op+" booking", 0, bookingID)
		return domain.Booking{}, err
	}
	log.Info().Int64("booking_id", bookingID).Bool("admin", isAdmin).Msg("booking cancelled")
	return out, nil
}

func (s *BookingService) ProcessPayment(ctx context.Context, bookingID int64, amount decimal.Decimal, method string) (domain.Payment, error) {
	var out domain.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.BookingStore) error {
		b, err := st.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if _, err := st.PaymentByBooking(ctx, bookingID); err == nil {
			return domain.ErrPaymentAlreadyExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if !amount.Equal(b.Price) {
			return fmt.Errorf("%w: paid %s, booking price is %s", domain.ErrAmountMismatch,
				amount.String(), b.Price.StringFixed(domain.PriceScale))
		}
		if err := b.CanConfirm(); err != nil {
			return err
		}
		now := s.now()
		p, err := st.InsertPayment(ctx, domain.Payment{
			BookingID:     b.ID,
			Amount:        amount,
			Method:        strings.TrimSpace(method),
			TransactionID: domain.TransactionID(b.ID, now.In(s.loc)),
			Status:        domain.PaymentStatusCompleted,
			PaidAt:        now.UTC(),
		})
		if err != nil {
			return err
		}
		if err := st.UpdateBookingStatus(ctx, b.ID, domain.StatusConfirmed); err != nil {
			return err
		}
		out = p
		return nil
	})
	observability.ObserveBooking("pay", outcome(err))
	if err != nil {
		logFailure(err, "process payment", 0, bookingID)
		return domain.Payment{}, err
	}
	log.Info().
		Int64("booking_id", bookingID).
		Str("transaction_id", out.TransactionID).
		Msg("payment processed, booking confirmed")
	return out, nil
}

// Quote runs the availability and pricing rules for a prospective stay
// without writing anything.
func (s *BookingService) Quote(ctx context.Context, roomID int64, checkIn, checkOut domain.Date) (domain.Quote, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, domain.ErrRoomNotFound
		}
		return domain.Quote{}, err
	}
	if room.Type == nil {
		return domain.Quote{}, domain.ErrRoomTypeMissing
	}
	if err := domain.ValidateDateRange(checkIn, checkOut, s.Today()); err != nil {
		return domain.Quote{}, err
	}
	existing, err := s.repo.ActiveBookingsForRoom(ctx, roomID)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		RoomID:      roomID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Nights:      checkIn.DaysUntil(checkOut),
		NightlyRate: room.Type.BasePrice.RoundBank(domain.PriceScale),
		Total:       domain.ComputePrice(checkIn, checkOut, room.Type.BasePrice),
		Available:   domain.IsRangeAvailable(roomID, checkIn, checkOut, existing),
	}, nil
}

// DueForCompletion lists confirmed stays whose check-out is today or earlier.
func (s *BookingService) DueForCompletion(ctx context.Context, limit int) ([]domain.Booking, error) {
	return s.repo.ConfirmedEndingBy(ctx, s.Today(), limit)
}

// CompleteStay marks a finished confirmed stay as Completed. It returns false
// without error when the booking changed state in the meantime.
func (s *BookingService) CompleteStay(ctx context.Context, bookingID int64) (bool, error) {
	today := s.Today()
	done := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.BookingStore) error {
		b, err := st.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CanComplete(today) != nil {
			return nil
		}
		if err := st.UpdateBookingStatus(ctx, b.ID, domain.StatusCompleted); err != nil {
			return err
		}
		done = true
		return nil
	})
	observability.ObserveBooking("complete", outcome(err))
	if err != nil {
		return false, err
	}
	return done, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidDateRange):
		return "invalid_date_range"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrRoomTypeMissing):
		return "room_type_missing"
	case errors.Is(err, domain.ErrRoomUnavailable):
		return "room_unavailable"
	case errors.Is(err, domain.ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return "invalid_status_transition"
	case errors.Is(err, domain.ErrPaymentAlreadyExists):
		return "payment_exists"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	}
	return "persistence_failure"
}

func logFailure(err error, what string, roomID, bookingID int64) {
	ev := log.Info()
	if errors.Is(err, domain.ErrPersistence) {
		ev = log.Error()
	}
	if roomID != 0 {
		ev = ev.Int64("room_id", roomID)
	}
	if bookingID != 0 {
		ev = ev.Int64("booking_id", bookingID)
	}
	ev.Err(err).Msg(what + " rejected")
}
