package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bookify/internal/app"
	"bookify/internal/domain"
	"bookify/internal/storage/memory"
)

// ---- fakes ----

// fakeRepo answers the catalogue and review reads; anything else panics via
// the nil embedded interface.
type fakeRepo struct {
	domain.Repository
	types    []domain.RoomType
	rooms    []domain.Room
	rp       domain.ReviewsPage
	inserted []domain.Review
	reads    int
}

func (f *fakeRepo) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	f.reads++
	return append([]domain.RoomType(nil), f.types...), nil
}

func (f *fakeRepo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	f.reads++
	return append([]domain.Room(nil), f.rooms...), nil
}

func (f *fakeRepo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	f.reads++
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (f *fakeRepo) ListReviews(ctx context.Context, pg domain.PageQuery) (domain.ReviewsPage, error) {
	f.reads++
	return f.rp, nil
}

func (f *fakeRepo) InsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	r.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, r)
	return r, nil
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.Room:
		*d = v.([]domain.Room)
	case *domain.Room:
		*d = v.(domain.Room)
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	case *domain.RoomTypeCatalogue:
		*d = v.(domain.RoomTypeCatalogue)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.store, k)
	}
	c.dels = append(c.dels, keys...)
	return nil
}

// ---- tests ----

func TestGetRoom_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{rooms: []domain.Room{{ID: 7, RoomNumber: "207", Description: ptr("Sea view")}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	r, err := q.GetRoom(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.RoomNumber != "207" || deref(r.Description) != "Sea view" {
		t.Fatalf("unexpected room: %+v", r)
	}

	// mutate repo to ensure the second read comes from cache
	repo.rooms[0].Description = ptr("SHOULD NOT SEE THIS")

	r2, err := q.GetRoom(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if deref(r2.Description) != "Sea view" {
		t.Fatalf("expected cached description, got %s", deref(r2.Description))
	}
	if repo.reads != 1 {
		t.Fatalf("repo read %d times", repo.reads)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute)
	if _, err := q.GetRoom(context.Background(), 1); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestListRooms_Cache(t *testing.T) {
	repo := &fakeRepo{rooms: []domain.Room{{ID: 1, RoomNumber: "101"}, {ID: 2, RoomNumber: "102"}}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	for i := 0; i < 3; i++ {
		rooms, err := q.ListRooms(context.Background())
		if err != nil || len(rooms) != 2 {
			t.Fatalf("rooms=%v err=%v", rooms, err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("repo read %d times", repo.reads)
	}
}

func TestRoomTypes_FacetsAndCache(t *testing.T) {
	repo := &fakeRepo{types: []domain.RoomType{
		{ID: 1, Name: "Standard", MaxGuests: 2, BasePrice: money("100")},
		{ID: 2, Name: "Suite", MaxGuests: 4, BasePrice: money("320")},
		{ID: 3, Name: "Single", MaxGuests: 1, BasePrice: money("65.5")},
	}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	for i := 0; i < 2; i++ {
		c, err := q.RoomTypes(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(c.Items) != 3 || !c.MinPrice.Equal(money("65.5")) || !c.MaxPrice.Equal(money("320")) ||
			c.MaxGuests != 4 || strings.Join(c.Names, ",") != "Standard,Suite,Single" {
			t.Fatalf("unexpected catalogue: %+v", c)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("repo read %d times", repo.reads)
	}
}

func TestListReviews_Cache(t *testing.T) {
	repo := &fakeRepo{
		rp: domain.ReviewsPage{Items: []domain.Review{{ID: 1, UserID: "ana", Rating: 5}}},
	}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	out, err := q.ListReviews(context.Background(), domain.PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].UserID != "ana" {
		t.Fatalf("unexpected reviews: %+v", out.Items)
	}

	// change repo, call again -> should come from cache
	repo.rp.Items[0].UserID = "changed"
	out2, _ := q.ListReviews(context.Background(), domain.PageQuery{Limit: 10})
	if out2.Items[0].UserID != "ana" {
		t.Fatalf("expected cached user ana, got %s", out2.Items[0].UserID)
	}

	// odd page sizes skip the cache
	out3, _ := q.ListReviews(context.Background(), domain.PageQuery{Limit: 7})
	if out3.Items[0].UserID != "changed" {
		t.Fatalf("limit 7 served from cache")
	}
}

func TestSubmitReview_InvalidatesCachedPages(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{rp: domain.ReviewsPage{Items: []domain.Review{}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)
	rs := app.NewReviewService(repo, q)

	_, _ = q.ListReviews(ctx, domain.PageQuery{Limit: 20})
	if _, ok := cache.store["reviews:20"]; !ok {
		t.Fatalf("page not cached")
	}

	rv, err := rs.SubmitReview(ctx, "guest-1", 4, "  Lovely stay  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rv.ID == 0 || rv.Description != "Lovely stay" || rv.CreatedAt.IsZero() {
		t.Fatalf("unexpected review: %+v", rv)
	}
	if _, ok := cache.store["reviews:20"]; ok {
		t.Fatalf("cached page survived a new review")
	}
	if len(cache.dels) != 4 {
		t.Fatalf("deleted keys: %v", cache.dels)
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	repo := &fakeRepo{}
	rs := app.NewReviewService(repo, nil)
	cases := []struct {
		name   string
		user   string
		rating int
		desc   string
	}{
		{"anonymous", "", 5, ""},
		{"rating zero", "u", 0, ""},
		{"rating six", "u", 6, ""},
		{"too long", "u", 3, strings.Repeat("x", domain.MaxReviewDescription+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rs.SubmitReview(context.Background(), tc.user, tc.rating, tc.desc); !errors.Is(err, domain.ErrInvalidReview) {
				t.Fatalf("want ErrInvalidReview, got %v", err)
			}
		})
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("invalid reviews stored: %d", len(repo.inserted))
	}
}

func TestPaymentSummary(t *testing.T) {
	ctx := context.Background()
	st, svc := newHotel(t)
	q := app.NewQueryService(st, memory.NewCache(), time.Minute)
	b, err := svc.CreateBooking(ctx, 101, "owner", day("2025-06-01"), day("2025-06-04"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := q.PaymentSummary(ctx, b.ID, "someone-else", false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := q.PaymentSummary(ctx, 999, "owner", false); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("missing: %v", err)
	}

	sum, err := q.PaymentSummary(ctx, b.ID, "owner", false)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Nights != 3 || sum.RoomNumber != "101" || sum.RoomTypeName != "Deluxe" ||
		!sum.PricePerNight.Equal(money("100")) || !sum.TotalPrice.Equal(money("300")) ||
		sum.Status != "Pending" || sum.Payment != nil {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	if _, err := svc.ProcessPayment(ctx, b.ID, money("300"), "Card"); err != nil {
		t.Fatal(err)
	}
	sum, err = q.PaymentSummary(ctx, b.ID, "admin", true)
	if err != nil || sum.Payment == nil || sum.Status != "Confirmed" {
		t.Fatalf("after payment: %+v %v", sum, err)
	}
}

func TestUserBookingsAndStats(t *testing.T) {
	ctx := context.Background()
	st, svc := newHotel(t)
	q := app.NewQueryService(st, memory.NewCache(), time.Minute)

	a, _ := svc.CreateBooking(ctx, 101, "alice", day("2025-06-01"), day("2025-06-03"))
	_, _ = svc.CreateBooking(ctx, 101, "bob", day("2025-06-10"), day("2025-06-11"))
	c, _ := svc.CreateBooking(ctx, 101, "alice", day("2025-07-01"), day("2025-07-02"))
	_, _ = svc.CancelBooking(ctx, c.ID, "alice", false)

	mine, err := q.UserBookings(ctx, "alice")
	if err != nil || len(mine) != 2 {
		t.Fatalf("alice bookings: %v %v", mine, err)
	}
	if mine[0].ID != c.ID || mine[1].ID != a.ID {
		t.Fatalf("not newest first: %d, %d", mine[0].ID, mine[1].ID)
	}

	all, _ := q.AllBookings(ctx, 2)
	if len(all) != 2 {
		t.Fatalf("limit ignored: %d", len(all))
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBookings != 3 || !stats.TotalRevenue.Equal(money("300")) || stats.TotalRooms != 2 || stats.TotalRoomTypes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func ptr[T any](v T) *T { return &v }
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
