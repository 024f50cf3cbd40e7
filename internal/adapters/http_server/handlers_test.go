package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	httpserver "bookify/internal/adapters/http_server"
	"bookify/internal/app"
	"bookify/internal/auth"
	"bookify/internal/domain"
	"bookify/internal/storage/memory"
)

const testSecret = "handler-test-secret-0123456789"

type fixture struct {
	h        http.Handler
	sessions *auth.Sessions
	store    *memory.Store
}

func newFixture(t *testing.T, writeLimit func(http.Handler) http.Handler) *fixture {
	t.Helper()
	st := memory.New()
	st.PutRoomType(domain.RoomType{ID: 1, Name: "Deluxe", MaxGuests: 2, BasePrice: decimal.RequireFromString("100")})
	st.PutRoom(domain.Room{ID: 101, RoomNumber: "101", Floor: 1, IsAvailable: true, Type: &domain.RoomType{ID: 1}})

	now := func() time.Time { return time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC) }
	q := app.NewQueryService(st, memory.NewCache(), time.Minute)
	b := app.NewBookingService(st, st, time.UTC).WithClock(now)
	rs := app.NewReviewService(st, q)

	sessions, err := auth.NewSessions(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if writeLimit == nil {
		writeLimit = func(next http.Handler) http.Handler { return next }
	}
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, B: b, R: rs},
		httpserver.Authenticate(sessions, "bookify_session"), writeLimit)
	return &fixture{h: srv.Mux(), sessions: sessions, store: st}
}

func (f *fixture) token(t *testing.T, user, role string) string {
	t.Helper()
	tok, err := f.sessions.Issue(user, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (%s)", v, err, rr.Body.String())
	}
	return v
}

type problemBody struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func expectProblem(t *testing.T, rr *httptest.ResponseRecorder, status int) problemBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rr.Code, status, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
	return decode[problemBody](t, rr)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "GET", "/healthz", "", nil)
	if rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestRooms_ETag(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "GET", "/v1/rooms/101", "", nil)
	if rr.Code != 200 {
		t.Fatalf("status %d", rr.Code)
	}
	room := decode[domain.Room](t, rr)
	if room.RoomNumber != "101" || room.Type == nil || room.Type.Name != "Deluxe" {
		t.Fatalf("unexpected room: %+v", room)
	}
	etag := rr.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("etag %q", etag)
	}

	req := httptest.NewRequest("GET", "/v1/rooms/101", nil)
	req.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()
	f.h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusNotModified {
		t.Fatalf("conditional GET: %d", rr2.Code)
	}

	expectProblem(t, f.do(t, "GET", "/v1/rooms/999", "", nil), http.StatusNotFound)
	expectProblem(t, f.do(t, "GET", "/v1/rooms/abc", "", nil), http.StatusBadRequest)

	list := f.do(t, "GET", "/v1/rooms", "", nil)
	if list.Code != 200 || !strings.Contains(list.Body.String(), `"room_number":"101"`) {
		t.Fatalf("list: %d %s", list.Code, list.Body.String())
	}
}

func TestRoomTypes(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutRoomType(domain.RoomType{ID: 2, Name: "Suite", MaxGuests: 4, BasePrice: decimal.RequireFromString("320")})

	rr := f.do(t, "GET", "/v1/room-types", "", nil)
	if rr.Code != 200 {
		t.Fatalf("status %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"min_price":"100.00"`, `"max_price":"320.00"`, `"max_guests":4`, `"names":["Deluxe","Suite"]`} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in %s", want, body)
		}
	}
	if rr.Header().Get("ETag") == "" {
		t.Fatalf("no etag")
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "GET", "/v1/rooms/101/quote?check_in=2025-06-01&check_out=2025-06-04", "", nil)
	if rr.Code != 200 {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	q := decode[domain.Quote](t, rr)
	if !q.Available || q.Nights != 3 || !q.Total.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected quote: %+v", q)
	}
	expectProblem(t, f.do(t, "GET", "/v1/rooms/101/quote?check_in=2025-06-04&check_out=2025-06-01", "", nil), http.StatusBadRequest)
	expectProblem(t, f.do(t, "GET", "/v1/rooms/101/quote?check_in=June&check_out=2025-06-01", "", nil), http.StatusBadRequest)
}

func TestBookingFlow(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.token(t, "alice", auth.RoleGuest)
	bob := f.token(t, "bob", auth.RoleGuest)
	admin := f.token(t, "ops", auth.RoleAdmin)

	// anonymous callers cannot book
	expectProblem(t, f.do(t, "POST", "/v1/bookings", "", map[string]any{
		"room_id": 101, "check_in": "2025-06-01", "check_out": "2025-06-04",
	}), http.StatusUnauthorized)

	rr := f.do(t, "POST", "/v1/bookings", alice, map[string]any{
		"room_id": 101, "check_in": "2025-06-01", "check_out": "2025-06-04",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	b := decode[domain.Booking](t, rr)
	if b.UserID != "alice" || b.Status != domain.StatusPending || !b.Price.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected booking: %+v", b)
	}
	id := itoa(b.ID)

	// overlap
	expectProblem(t, f.do(t, "POST", "/v1/bookings", bob, map[string]any{
		"room_id": 101, "check_in": "2025-06-03", "check_out": "2025-06-05",
	}), http.StatusConflict)

	// payment summary is private to the owner and admins
	expectProblem(t, f.do(t, "GET", "/v1/bookings/"+id+"/payment", bob, nil), http.StatusForbidden)
	sum := decode[app.PaymentSummary](t, f.do(t, "GET", "/v1/bookings/"+id+"/payment", alice, nil))
	if sum.Nights != 3 || !sum.PricePerNight.Equal(decimal.NewFromInt(100)) || sum.Status != "Pending" {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	// bob may not pay for alice's booking
	expectProblem(t, f.do(t, "POST", "/v1/payments", bob, map[string]any{
		"booking_id": b.ID, "amount": "300.00", "payment_method": "Card",
	}), http.StatusForbidden)

	// wrong amount
	expectProblem(t, f.do(t, "POST", "/v1/payments", alice, map[string]any{
		"booking_id": b.ID, "amount": 299.99, "payment_method": "Card",
	}), http.StatusUnprocessableEntity)

	rr = f.do(t, "POST", "/v1/payments", alice, map[string]any{
		"booking_id": b.ID, "amount": 300, "payment_method": "Card",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("pay: %d %s", rr.Code, rr.Body.String())
	}
	p := decode[domain.Payment](t, rr)
	if p.TransactionID != "TXN-20250520090000-"+id || p.Status != "Completed" {
		t.Fatalf("unexpected payment: %+v", p)
	}

	// paying twice
	expectProblem(t, f.do(t, "POST", "/v1/payments", alice, map[string]any{
		"booking_id": b.ID, "amount": "300", "payment_method": "Card",
	}), http.StatusConflict)

	// guests cannot cancel a confirmed booking, admins can
	expectProblem(t, f.do(t, "POST", "/v1/bookings/"+id+"/cancel", alice, nil), http.StatusConflict)
	expectProblem(t, f.do(t, "POST", "/v1/admin/bookings/"+id+"/cancel", alice, nil), http.StatusForbidden)
	rr = f.do(t, "POST", "/v1/admin/bookings/"+id+"/cancel", admin, nil)
	if rr.Code != 200 || decode[domain.Booking](t, rr).Status != domain.StatusCancelled {
		t.Fatalf("admin cancel: %d %s", rr.Code, rr.Body.String())
	}

	mine := decode[struct {
		Items []domain.Booking `json:"items"`
	}](t, f.do(t, "GET", "/v1/me/bookings", alice, nil))
	if len(mine.Items) != 1 || mine.Items[0].Status != domain.StatusCancelled {
		t.Fatalf("my bookings: %+v", mine.Items)
	}

	stats := decode[domain.Stats](t, f.do(t, "GET", "/v1/admin/stats", admin, nil))
	if stats.TotalBookings != 1 || !stats.TotalRevenue.IsZero() || stats.TotalRooms != 1 {
		t.Fatalf("stats: %+v", stats)
	}
	all := f.do(t, "GET", "/v1/admin/bookings?limit=5", admin, nil)
	if all.Code != 200 {
		t.Fatalf("admin list: %d", all.Code)
	}
	expectProblem(t, f.do(t, "GET", "/v1/admin/stats", bob, nil), http.StatusForbidden)
}

func TestPayment_AmountIsOnlyComparedWithThePrice(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutRoomType(domain.RoomType{ID: 2, Name: "Staff", MaxGuests: 1, BasePrice: decimal.Zero})
	f.store.PutRoom(domain.Room{ID: 102, RoomNumber: "102", Floor: 1, IsAvailable: true, Type: &domain.RoomType{ID: 2}})
	tok := f.token(t, "alice", auth.RoleGuest)

	paid := decode[domain.Booking](t, f.do(t, "POST", "/v1/bookings", tok, map[string]any{
		"room_id": 101, "check_in": "2025-06-01", "check_out": "2025-06-02",
	}))
	expectProblem(t, f.do(t, "POST", "/v1/payments", tok, map[string]any{
		"booking_id": paid.ID, "amount": "-5", "payment_method": "Card",
	}), http.StatusUnprocessableEntity)

	rr := f.do(t, "POST", "/v1/bookings", tok, map[string]any{
		"room_id": 102, "check_in": "2025-06-01", "check_out": "2025-06-03",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"price":"0.00"`) {
		t.Fatalf("price not rendered with two digits: %s", rr.Body.String())
	}
	free := decode[domain.Booking](t, rr)
	if !free.Price.IsZero() {
		t.Fatalf("price %s", free.Price)
	}
	rr = f.do(t, "POST", "/v1/payments", tok, map[string]any{
		"booking_id": free.ID, "amount": "0", "payment_method": "Voucher",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("pay zero: %d %s", rr.Code, rr.Body.String())
	}
	sum := decode[app.PaymentSummary](t, f.do(t, "GET", "/v1/bookings/"+itoa(free.ID)+"/payment", tok, nil))
	if sum.Status != "Confirmed" {
		t.Fatalf("status %s", sum.Status)
	}
}

func TestCreateBooking_BadRequests(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.token(t, "alice", auth.RoleGuest)
	cases := []struct {
		name string
		body any
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"unknown field", `{"room_id":101,"check_in":"2025-06-01","check_out":"2025-06-02","extra":1}`, http.StatusBadRequest},
		{"missing room", map[string]any{"check_in": "2025-06-01", "check_out": "2025-06-02"}, http.StatusBadRequest},
		{"bad date", map[string]any{"room_id": 101, "check_in": "01/06/2025", "check_out": "2025-06-02"}, http.StatusBadRequest},
		{"past", map[string]any{"room_id": 101, "check_in": "2025-05-01", "check_out": "2025-05-02"}, http.StatusBadRequest},
		{"reversed", map[string]any{"room_id": 101, "check_in": "2025-06-03", "check_out": "2025-06-01"}, http.StatusBadRequest},
		{"unknown room", map[string]any{"room_id": 7, "check_in": "2025-06-01", "check_out": "2025-06-02"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectProblem(t, f.do(t, "POST", "/v1/bookings", tok, tc.body), tc.want)
		})
	}
}

func TestReviews(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.token(t, "alice", auth.RoleGuest)

	empty := f.do(t, "GET", "/v1/reviews", "", nil)
	if empty.Code != 200 || !strings.Contains(empty.Body.String(), `"items":[]`) {
		t.Fatalf("empty reviews: %d %s", empty.Code, empty.Body.String())
	}

	expectProblem(t, f.do(t, "POST", "/v1/reviews", tok, map[string]any{"rating": 9}), http.StatusBadRequest)
	expectProblem(t, f.do(t, "POST", "/v1/reviews", "", map[string]any{"rating": 4}), http.StatusUnauthorized)

	rr := f.do(t, "POST", "/v1/reviews", tok, map[string]any{"rating": 4, "description": "Quiet and clean"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rr.Code, rr.Body.String())
	}

	// the cached empty page must not hide the new review
	page := decode[domain.ReviewsPage](t, f.do(t, "GET", "/v1/reviews", "", nil))
	if len(page.Items) != 1 || page.Items[0].UserID != "alice" {
		t.Fatalf("reviews: %+v", page.Items)
	}
	expectProblem(t, f.do(t, "GET", "/v1/reviews?limit=1000", "", nil), http.StatusBadRequest)
}

func TestSessionCookie(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest("GET", "/v1/me/bookings", nil)
	req.AddCookie(&http.Cookie{Name: "bookify_session", Value: f.token(t, "alice", auth.RoleGuest)})
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("cookie session: %d %s", rr.Code, rr.Body.String())
	}

	expectProblem(t, f.do(t, "GET", "/v1/me/bookings", "forged.token.value", nil), http.StatusUnauthorized)
}

func TestWriteEndpointsAreRateLimited(t *testing.T) {
	lim := httpserver.NewRateLimiter(0.001, 1)
	f := newFixture(t, lim.Middleware)
	tok := f.token(t, "alice", auth.RoleGuest)

	first := f.do(t, "POST", "/v1/reviews", tok, map[string]any{"rating": 5})
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d", first.Code)
	}
	expectProblem(t, f.do(t, "POST", "/v1/reviews", tok, map[string]any{"rating": 5}), http.StatusTooManyRequests)

	// reads are not limited
	if rr := f.do(t, "GET", "/v1/reviews", "", nil); rr.Code != 200 {
		t.Fatalf("read limited: %d", rr.Code)
	}
}

func itoa(n int64) string { return decimal.NewFromInt(n).String() }
