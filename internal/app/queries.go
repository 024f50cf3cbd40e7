package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bookify/internal/domain"
)

const (
	roomsKey      = "rooms:all"
	roomTypesKey  = "room-types"
	reviewsPrefix = "reviews:"
)

// reviewPageLimits are the page sizes worth caching.
var reviewPageLimits = []int{10, 20, 50, 100}

func roomKey(id int64) string     { return fmt.Sprintf("rooms:%d", id) }
func reviewsKey(limit int) string { return fmt.Sprintf("%s%d", reviewsPrefix, limit) }

func cacheableReviewLimit(n int) bool {
	for _, l := range reviewPageLimits {
		if l == n {
			return true
		}
	}
	return false
}

// QueryService serves read paths. The room catalogue and review pages go
// through the cache; booking data is always read from the repository.
type QueryService struct {
	repo     domain.Repository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.Repository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if ok, _ := s.cache.Get(ctx, roomsKey, &rooms); ok {
		return rooms, nil
	}
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, roomsKey, rooms, int(s.cacheTTL.Seconds()))
	return rooms, nil
}

// RoomTypes lists room types with price and capacity facets.
func (s *QueryService) RoomTypes(ctx context.Context) (domain.RoomTypeCatalogue, error) {
	var out domain.RoomTypeCatalogue
	if ok, _ := s.cache.Get(ctx, roomTypesKey, &out); ok {
		return out, nil
	}
	types, err := s.repo.ListRoomTypes(ctx)
	if err != nil {
		return domain.RoomTypeCatalogue{}, err
	}
	out = domain.NewRoomTypeCatalogue(types)
	_ = s.cache.Set(ctx, roomTypesKey, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *QueryService) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	key := roomKey(id)
	var room domain.Room
	if ok, _ := s.cache.Get(ctx, key, &room); ok {
		return room, nil
	}
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, room, int(s.cacheTTL.Seconds()))
	return room, nil
}

func (s *QueryService) ListReviews(ctx context.Context, pg domain.PageQuery) (domain.ReviewsPage, error) {
	cacheable := cacheableReviewLimit(pg.Limit)
	key := reviewsKey(pg.Limit)
	var out domain.ReviewsPage
	if cacheable {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rs, err := s.repo.ListReviews(ctx, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := domain.ReviewsPage{Items: make([]domain.Review, len(rs.Items))}
	copy(copyRS.Items, rs.Items)

	if b, _ := json.Marshal(copyRS); cacheable && len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
	}
	return copyRS, nil
}

// InvalidateReviews drops every cached review page.
func (s *QueryService) InvalidateReviews(ctx context.Context) {
	keys := make([]string, 0, len(reviewPageLimits))
	for _, l := range reviewPageLimits {
		keys = append(keys, reviewsKey(l))
	}
	_ = s.cache.Del(ctx, keys...)
}

// InvalidateCatalogue drops the cached room list, room types and every
// room entry, including rooms in extra that the repository no longer lists.
func (s *QueryService) InvalidateCatalogue(ctx context.Context, extra ...int64) error {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return err
	}
	keys := []string{roomsKey, roomTypesKey}
	for _, r := range rooms {
		keys = append(keys, roomKey(r.ID))
	}
	for _, id := range extra {
		keys = append(keys, roomKey(id))
	}
	return s.cache.Del(ctx, keys...)
}

func (s *QueryService) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, err
}

// UserBookings lists a guest's bookings, newest first.
func (s *QueryService) UserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.repo.ListBookings(ctx, domain.BookingFilter{UserID: userID})
}

func (s *QueryService) AllBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	return s.repo.ListBookings(ctx, domain.BookingFilter{Limit: limit})
}

func (s *QueryService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}

// PaymentSummary is what a guest sees before paying (and after).
type PaymentSummary struct {
	BookingID     int64           `json:"booking_id"`
	RoomNumber    string          `json:"room_number"`
	RoomTypeName  string          `json:"room_type_name,omitempty"`
	CheckIn       domain.Date     `json:"check_in"`
	CheckOut      domain.Date     `json:"check_out"`
	Nights        int             `json:"nights"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	Payment       *domain.Payment `json:"payment,omitempty"`
}

func (p PaymentSummary) MarshalJSON() ([]byte, error) {
	type plain PaymentSummary
	return json.Marshal(struct {
		plain
		PricePerNight domain.Money `json:"price_per_night"`
		TotalPrice    domain.Money `json:"total_price"`
	}{plain(p), domain.Money(p.PricePerNight), domain.Money(p.TotalPrice)})
}

// PaymentSummary returns the booking's payment view if requesterID may see it.
func (s *QueryService) PaymentSummary(ctx context.Context, bookingID int64, requesterID string, isAdmin bool) (PaymentSummary, error) {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return PaymentSummary{}, err
	}
	if !isAdmin && b.UserID != requesterID {
		return PaymentSummary{}, domain.ErrUnauthorized
	}
	out := PaymentSummary{
		BookingID:  b.ID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Nights:     b.Nights(),
		TotalPrice: b.Price,
		Status:     string(b.Status),
	}
	if room, err := s.GetRoom(ctx, b.RoomID); err == nil {
		out.RoomNumber = room.RoomNumber
		if room.Type != nil {
			out.RoomTypeName = room.Type.Name
			out.PricePerNight = room.Type.BasePrice
		}
	} else if !errors.Is(err, domain.ErrRoomNotFound) {
		return PaymentSummary{}, err
	}
	p, err := s.repo.PaymentByBooking(ctx, b.ID)
	switch {
	case err == nil:
		out.Payment = &p
	case !errors.Is(err, domain.ErrNotFound):
		return PaymentSummary{}, err
	}
	return out, nil
}
