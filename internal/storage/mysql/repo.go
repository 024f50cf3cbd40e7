package mysql

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"bookify/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valNonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- catalogue writes (operator tooling and tests) ----

func (r *Repo) UpsertRoomType(ctx context.Context, t domain.RoomType) error {
	_, err := r.db.ExecContext(ctx, upsertRoomTypeSQL,
		t.ID, t.Name, valNonEmpty(t.Description), t.Area, t.MaxGuests, t.BasePrice)
	return domain.Persist("upsert room type", err)
}

// UpsertRoom writes the room and links its amenities. Only Type.ID is read
// from room.Type.
func (r *Repo) UpsertRoom(ctx context.Context, room domain.Room) error {
	var typeID any
	if room.Type != nil {
		typeID = room.Type.ID
	}
	if _, err := r.db.ExecContext(ctx, upsertRoomSQL,
		room.ID, room.RoomNumber, room.Floor, room.IsAvailable,
		valStr(room.ImageURL), valStr(room.Description), typeID,
	); err != nil {
		return domain.Persist("upsert room", err)
	}
	for _, a := range room.Amenities {
		if _, err := r.db.ExecContext(ctx, upsertAmenitySQL, a.ID, a.Name, valNonEmpty(a.Description)); err != nil {
			return domain.Persist("upsert amenity", err)
		}
		if _, err := r.db.ExecContext(ctx, linkAmenitySQL, room.ID, a.ID); err != nil {
			return domain.Persist("link amenity", err)
		}
	}
	return nil
}

// ---- catalogue reads ----

type rowScanner interface{ Scan(dest ...any) error }

func scanRoom(s rowScanner) (domain.Room, error) {
	var (
		room                   domain.Room
		imageURL, desc         sql.NullString
		typeID                 sql.NullInt64
		typeName, typeDesc     sql.NullString
		typeArea, typeMaxGuest sql.NullInt64
		basePrice              decimal.NullDecimal
	)
	if err := s.Scan(
		&room.ID, &room.RoomNumber, &room.Floor, &room.IsAvailable,
		&imageURL, &desc,
		&typeID, &typeName, &typeDesc, &typeArea, &typeMaxGuest, &basePrice,
	); err != nil {
		return domain.Room{}, err
	}
	if imageURL.Valid {
		s := imageURL.String
		room.ImageURL = &s
	}
	if desc.Valid {
		s := desc.String
		room.Description = &s
	}
	if typeID.Valid {
		room.Type = &domain.RoomType{
			ID:          typeID.Int64,
			Name:        typeName.String,
			Description: typeDesc.String,
			Area:        int(typeArea.Int64),
			MaxGuests:   int(typeMaxGuest.Int64),
			BasePrice:   basePrice.Decimal,
		}
	}
	room.Amenities = []domain.Amenity{}
	return room, nil
}

func scanAmenities(rows *sql.Rows) (map[int64][]domain.Amenity, error) {
	defer rows.Close()
	out := map[int64][]domain.Amenity{}
	for rows.Next() {
		var (
			roomID int64
			a      domain.Amenity
			desc   sql.NullString
		)
		if err := rows.Scan(&roomID, &a.ID, &a.Name, &desc); err != nil {
			return nil, err
		}
		a.Description = desc.String
		out[roomID] = append(out[roomID], a)
	}
	return out, rows.Err()
}

func (r *Repo) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, listRoomTypesSQL)
	if err != nil {
		return nil, domain.Persist("list room types", err)
	}
	defer rows.Close()

	out := []domain.RoomType{}
	for rows.Next() {
		var (
			t    domain.RoomType
			desc sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &desc, &t.Area, &t.MaxGuests, &t.BasePrice); err != nil {
			return nil, domain.Persist("list room types", err)
		}
		t.Description = desc.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persist("list room types", err)
	}
	return out, nil
}

func (r *Repo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL)
	if err != nil {
		return nil, domain.Persist("list rooms", err)
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, domain.Persist("list rooms", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persist("list rooms", err)
	}

	arows, err := r.db.QueryContext(ctx, listRoomAmenitiesSQL)
	if err != nil {
		return nil, domain.Persist("list amenities", err)
	}
	amen, err := scanAmenities(arows)
	if err != nil {
		return nil, domain.Persist("list amenities", err)
	}
	for i := range out {
		if as, ok := amen[out[i].ID]; ok {
			out[i].Amenities = as
		}
	}
	return out, nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	room, err := getRoom(ctx, r.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return room, domain.Persist("get room", err)
}

func getRoom(ctx context.Context, q querier, id int64) (domain.Room, error) {
	room, err := scanRoom(q.QueryRowContext(ctx, getRoomSQL, id))
	if err != nil {
		return domain.Room{}, err
	}
	rows, err := q.QueryContext(ctx, roomAmenitiesSQL, id)
	if err != nil {
		return domain.Room{}, err
	}
	amen, err := scanAmenities(rows)
	if err != nil {
		return domain.Room{}, err
	}
	if as, ok := amen[id]; ok {
		room.Amenities = as
	}
	return room, nil
}

// ---- bookings ----

func scanBooking(s rowScanner) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	if err := s.Scan(&b.ID, &b.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut, &b.Price, &status, &b.CreatedAt); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]domain.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, domain.Persist("get booking", err)
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limitOrMax(f.Limit))

	out, err := queryBookings(ctx, r.db, query, args...)
	return out, domain.Persist("list bookings", err)
}

func (r *Repo) ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	out, err := queryBookings(ctx, r.db, activeBookingsSQL, roomID)
	return out, domain.Persist("active bookings", err)
}

func (r *Repo) ConfirmedEndingBy(ctx context.Context, day domain.Date, limit int) ([]domain.Booking, error) {
	out, err := queryBookings(ctx, r.db, confirmedEndingBySQL, day, limitOrMax(limit))
	return out, domain.Persist("confirmed ending by", err)
}

func scanPayment(s rowScanner) (domain.Payment, error) {
	var p domain.Payment
	if err := s.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.PaidAt); err != nil {
		return domain.Payment{}, err
	}
	p.PaidAt = p.PaidAt.UTC()
	return p, nil
}

func paymentByBooking(ctx context.Context, q querier, bookingID int64) (domain.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, paymentByBookingSQL, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, domain.Persist("payment by booking", err)
}

func (r *Repo) PaymentByBooking(ctx context.Context, bookingID int64) (domain.Payment, error) {
	return paymentByBooking(ctx, r.db, bookingID)
}

func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRowContext(ctx, statsSQL).Scan(&s.TotalBookings, &s.TotalRevenue, &s.TotalRooms, &s.TotalRoomTypes)
	return s, domain.Persist("stats", err)
}

// ---- reviews ----

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	res, err := r.db.ExecContext(ctx, insertReviewSQL, rv.UserID, rv.Rating, valNonEmpty(rv.Description), rv.CreatedAt.UTC())
	if err != nil {
		return domain.Review{}, domain.Persist("insert review", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Review{}, domain.Persist("insert review", err)
	}
	rv.ID = id
	return rv, nil
}

func (r *Repo) ListReviews(ctx context.Context, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, limitOrMax(pg.Limit))
	if err != nil {
		return domain.ReviewsPage{}, domain.Persist("list reviews", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var (
			rv   domain.Review
			desc sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Rating, &desc, &rv.CreatedAt); err != nil {
			return domain.ReviewsPage{}, domain.Persist("list reviews", err)
		}
		rv.Description = desc.String
		rv.CreatedAt = rv.CreatedAt.UTC()
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, domain.Persist("list reviews", err)
	}
	return domain.ReviewsPage{Items: out}, nil
}

func limitOrMax(n int) int {
	if n <= 0 {
		return math.MaxInt32
	}
	return n
}

var (
	_ domain.Repository      = (*Repo)(nil)
	_ domain.CatalogueWriter = (*Repo)(nil)
)
