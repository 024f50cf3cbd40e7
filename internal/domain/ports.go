package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// BookingStore is the data access available inside one transaction.
// Implementations report missing rows with the matching error kind.
type BookingStore interface {
	// LockRoom takes a write lock on the room row so overlap checks for the
	// same room are serialised until the transaction ends.
	LockRoom(ctx context.Context, roomID int64) error
	RoomWithType(ctx context.Context, roomID int64) (Room, error)
	ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]Booking, error)
	InsertBooking(ctx context.Context, b Booking) (Booking, error)

	// BookingForUpdate loads and locks a booking row.
	BookingForUpdate(ctx context.Context, id int64) (Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status BookingStatus) error

	// PaymentByBooking returns ErrNotFound when the booking has no payment.
	PaymentByBooking(ctx context.Context, bookingID int64) (Payment, error)
	// InsertPayment returns ErrPaymentAlreadyExists on a duplicate booking id.
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
}

type TxManager interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, s BookingStore) error) error
}

type Repository interface {
	// Catalogue
	ListRoomTypes(ctx context.Context) ([]RoomType, error)
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)

	// Bookings (read paths)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
	ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]Booking, error)
	ConfirmedEndingBy(ctx context.Context, day Date, limit int) ([]Booking, error)
	PaymentByBooking(ctx context.Context, bookingID int64) (Payment, error)
	Stats(ctx context.Context) (Stats, error)

	// Reviews
	InsertReview(ctx context.Context, r Review) (Review, error)
	ListReviews(ctx context.Context, pg PageQuery) (ReviewsPage, error)
}

// CatalogueWriter inserts or replaces catalogue rows by id. Only Type.ID
// is read from Room.Type.
type CatalogueWriter interface {
	UpsertRoomType(ctx context.Context, t RoomType) error
	UpsertRoom(ctx context.Context, r Room) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, keys ...string) error
}

// BookingFilter narrows ListBookings; zero values mean "any".
type BookingFilter struct {
	UserID string
	RoomID int64
	Limit  int
}

type PageQuery struct {
	Limit int
}

type ReviewsPage struct {
	Items []Review `json:"items"`
}

type Stats struct {
	TotalBookings  int             `json:"total_bookings"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalRooms     int             `json:"total_rooms"`
	TotalRoomTypes int             `json:"total_room_types"`
}
