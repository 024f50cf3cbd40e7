package mysql

import (
	"context"
	"database/sql"
	"errors"

	drv "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"bookify/internal/domain"
)

// errDuplicateKey is MySQL's ER_DUP_ENTRY.
const errDuplicateKey = 1062

func isDuplicate(err error) bool {
	var me *drv.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateKey
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken through
// the BookingStore (room, booking) are held until commit or rollback.
func (r *Repo) WithinTx(ctx context.Context, fn func(ctx context.Context, s domain.BookingStore) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.Persist("begin tx", err)
	}
	if err := fn(ctx, txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return domain.Persist("commit", tx.Commit())
}

type txStore struct{ tx *sql.Tx }

func (t txStore) LockRoom(ctx context.Context, roomID int64) error {
	var id int64
	err := t.tx.QueryRowContext(ctx, lockRoomSQL, roomID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRoomNotFound
	}
	return domain.Persist("lock room", err)
}

func (t txStore) RoomWithType(ctx context.Context, roomID int64) (domain.Room, error) {
	room, err := getRoom(ctx, t.tx, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, domain.Persist("room with type", err)
}

func (t txStore) ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	out, err := queryBookings(ctx, t.tx, activeBookingsSQL, roomID)
	return out, domain.Persist("active bookings", err)
}

func (t txStore) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	res, err := t.tx.ExecContext(ctx, insertBookingSQL,
		b.RoomID, b.UserID, b.CheckIn, b.CheckOut, b.Price, string(b.Status), b.CreatedAt.UTC())
	if err != nil {
		return domain.Booking{}, domain.Persist("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Booking{}, domain.Persist("insert booking", err)
	}
	b.ID = id
	return b, nil
}

func (t txStore) BookingForUpdate(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRowContext(ctx, bookingForUpdateSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, domain.Persist("booking for update", err)
}

func (t txStore) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	_, err := t.tx.ExecContext(ctx, updateBookingStatusSQL, string(status), id)
	return domain.Persist("update booking status", err)
}

func (t txStore) PaymentByBooking(ctx context.Context, bookingID int64) (domain.Payment, error) {
	return paymentByBooking(ctx, t.tx, bookingID)
}

func (t txStore) InsertPayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	res, err := t.tx.ExecContext(ctx, insertPaymentSQL,
		p.BookingID, p.Amount, p.Method, p.TransactionID, p.Status, p.PaidAt.UTC())
	if isDuplicate(err) {
		return domain.Payment{}, domain.ErrPaymentAlreadyExists
	}
	if err != nil {
		return domain.Payment{}, domain.Persist("insert payment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Payment{}, domain.Persist("insert payment", err)
	}
	p.ID = id
	return p, nil
}

var (
	_ domain.TxManager    = (*Repo)(nil)
	_ domain.BookingStore = txStore{}
)
