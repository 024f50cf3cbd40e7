// Package memory is an in-process implementation of the domain storage ports.
// It backs STORAGE=memory for local runs and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bookify/internal/domain"
)

type state struct {
	roomTypes map[int64]domain.RoomType
	rooms     map[int64]domain.Room
	bookings  map[int64]domain.Booking
	payments  map[int64]domain.Payment // keyed by booking id
	reviews   []domain.Review

	nextBooking, nextPayment, nextReview int64
}

func (s *state) clone() *state {
	c := *s
	c.roomTypes = make(map[int64]domain.RoomType, len(s.roomTypes))
	for k, v := range s.roomTypes {
		c.roomTypes[k] = v
	}
	c.rooms = make(map[int64]domain.Room, len(s.rooms))
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	c.bookings = make(map[int64]domain.Booking, len(s.bookings))
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	c.payments = make(map[int64]domain.Payment, len(s.payments))
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.reviews = append([]domain.Review(nil), s.reviews...)
	return &c
}

// Store serialises transactions with a single mutex and restores a snapshot
// when a transaction fails.
type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		roomTypes: map[int64]domain.RoomType{},
		rooms:     map[int64]domain.Room{},
		bookings:  map[int64]domain.Booking{},
		payments:  map[int64]domain.Payment{},
	}}
}

// PutRoomType inserts or replaces a room type.
func (s *Store) PutRoomType(rt domain.RoomType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.roomTypes[rt.ID] = rt
}

// PutRoom inserts or replaces a room. room.Type only needs its ID; the
// stored room type is attached on read.
func (s *Store) PutRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rooms[room.ID] = room
}

func (s *Store) UpsertRoomType(ctx context.Context, t domain.RoomType) error {
	s.PutRoomType(t)
	return nil
}

func (s *Store) UpsertRoom(ctx context.Context, r domain.Room) error {
	s.PutRoom(r)
	return nil
}

// PutBooking inserts a booking as-is, assigning an id when missing.
func (s *Store) PutBooking(b domain.Booking) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.st.nextBooking++
		b.ID = s.st.nextBooking
	} else if b.ID > s.st.nextBooking {
		s.st.nextBooking = b.ID
	}
	s.st.bookings[b.ID] = b
	return b
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st domain.BookingStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(ctx, txStore{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ---- transactional view ----

type txStore struct{ st *state }

func (t txStore) LockRoom(ctx context.Context, roomID int64) error {
	if _, ok := t.st.rooms[roomID]; !ok {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (t txStore) RoomWithType(ctx context.Context, roomID int64) (domain.Room, error) {
	r, ok := t.st.room(roomID)
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r, nil
}

func (t txStore) ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	return t.st.activeFor(roomID), nil
}

func (t txStore) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	t.st.nextBooking++
	b.ID = t.st.nextBooking
	t.st.bookings[b.ID] = b
	return b, nil
}

func (t txStore) BookingForUpdate(ctx context.Context, id int64) (domain.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (t txStore) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = status
	t.st.bookings[id] = b
	return nil
}

func (t txStore) PaymentByBooking(ctx context.Context, bookingID int64) (domain.Payment, error) {
	p, ok := t.st.payments[bookingID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (t txStore) InsertPayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	if _, ok := t.st.payments[p.BookingID]; ok {
		return domain.Payment{}, domain.ErrPaymentAlreadyExists
	}
	t.st.nextPayment++
	p.ID = t.st.nextPayment
	t.st.payments[p.BookingID] = p
	return p, nil
}

// ---- read paths ----

func (s *state) room(id int64) (domain.Room, bool) {
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	if r.Type != nil {
		if rt, ok := s.roomTypes[r.Type.ID]; ok {
			rt := rt
			r.Type = &rt
		} else {
			r.Type = nil
		}
	}
	r.Amenities = append([]domain.Amenity{}, r.Amenities...)
	return r, true
}

func (s *state) activeFor(roomID int64) []domain.Booking {
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status != domain.StatusCancelled {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

func (s *Store) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomType, 0, len(s.st.roomTypes))
	for _, t := range s.st.roomTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.st.rooms))
	for id := range s.st.rooms {
		r, _ := s.st.room(id)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.room(id)
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.st.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.RoomID != 0 && b.RoomID != f.RoomID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ActiveBookingsForRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.activeFor(roomID), nil
}

func (s *Store) ConfirmedEndingBy(ctx context.Context, day domain.Date, limit int) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.st.bookings {
		if b.Status == domain.StatusConfirmed && !day.Before(b.CheckOut) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PaymentByBooking(ctx context.Context, bookingID int64) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return txStore{st: s.st}.PaymentByBooking(ctx, bookingID)
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.Stats{
		TotalBookings:  len(s.st.bookings),
		TotalRevenue:   decimal.Zero,
		TotalRooms:     len(s.st.rooms),
		TotalRoomTypes: len(s.st.roomTypes),
	}
	for _, b := range s.st.bookings {
		if b.Status != domain.StatusCancelled {
			out.TotalRevenue = out.TotalRevenue.Add(b.Price)
		}
	}
	return out, nil
}

func (s *Store) InsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextReview++
	r.ID = s.st.nextReview
	s.st.reviews = append(s.st.reviews, r)
	return r, nil
}

func (s *Store) ListReviews(ctx context.Context, pg domain.PageQuery) (domain.ReviewsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]domain.Review{}, s.st.reviews...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if pg.Limit > 0 && len(items) > pg.Limit {
		items = items[:pg.Limit]
	}
	return domain.ReviewsPage{Items: items}, nil
}

var (
	_ domain.Repository      = (*Store)(nil)
	_ domain.CatalogueWriter = (*Store)(nil)
	_ domain.TxManager       = (*Store)(nil)
	_ domain.BookingStore    = txStore{}
)
