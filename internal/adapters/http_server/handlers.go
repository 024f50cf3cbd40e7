package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bookify/internal/app"
	"bookify/internal/auth"
	"bookify/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	B *app.BookingService
	R *app.ReviewService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// MountHandlers registers the API. authn identifies callers; writeLimit
// guards every state-changing endpoint.
func (s *Server) MountHandlers(h *Handlers, authn, writeLimit func(http.Handler) http.Handler) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(authn)

		r.Get("/room-types", h.roomTypes)
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{id}", h.getRoom)
		r.Get("/rooms/{id}/quote", h.quote)
		r.Get("/reviews", h.listReviews)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/me/bookings", h.myBookings)
			r.Get("/bookings/{id}/payment", h.paymentSummary)

			r.With(writeLimit).Post("/reviews", h.submitReview)
			r.With(writeLimit).Post("/bookings", h.createBooking)
			r.With(writeLimit).Post("/bookings/{id}/cancel", h.cancelBooking)
			r.With(writeLimit).Post("/payments", h.processPayment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireUser, RequireRole(auth.RoleAdmin))
			r.Get("/bookings", h.adminBookings)
			r.Get("/stats", h.adminStats)
			r.With(writeLimit).Post("/bookings/{id}/cancel", h.adminCancel)
		})
	})
}

// ---- response helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps booking engine errors to problem responses. Storage
// failures are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDateRange), errors.Is(err, domain.ErrInvalidReview):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrRoomUnavailable), errors.Is(err, domain.ErrInvalidStatusTransition), errors.Is(err, domain.ErrPaymentAlreadyExists):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrAmountMismatch), errors.Is(err, domain.ErrRoomTypeMissing):
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers 304 when the client already holds this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

// ---- request helpers ----

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request, def, max int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > max {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and "+strconv.Itoa(max))
		return 0, false
	}
	return l, true
}

// decodeBody reads a JSON body into dst and runs its validate tags.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return err.Error()
	}
	fe := ves[0]
	return fe.Field() + " failed " + fe.Tag() + " validation"
}

func parseStay(w http.ResponseWriter, in, out string) (domain.Date, domain.Date, bool) {
	checkIn, err := domain.ParseDate(in)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error())
		return domain.Date{}, domain.Date{}, false
	}
	checkOut, err := domain.ParseDate(out)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error())
		return domain.Date{}, domain.Date{}, false
	}
	return checkIn, checkOut, true
}

func caller(r *http.Request) auth.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

// ---- catalogue ----

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Q.ListRooms(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	writeCacheable(w, r, map[string]any{"items": rooms})
}

func (h *Handlers) roomTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.RoomTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	room, err := h.Q.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, room)
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	checkIn, checkOut, ok := parseStay(w, q.Get("check_in"), q.Get("check_out"))
	if !ok {
		return
	}
	out, err := h.B.Quote(r.Context(), id, checkIn, checkOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, 10, 100)
	if !ok {
		return
	}
	out, err := h.Q.ListReviews(r.Context(), domain.PageQuery{Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

type reviewRequest struct {
	Rating      int    `json:"rating" validate:"min=1,max=5"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rv, err := h.R.SubmitReview(r.Context(), caller(r).UserID, req.Rating, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// ---- bookings ----

type createBookingRequest struct {
	RoomID   int64  `json:"room_id" validate:"required,gt=0"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	checkIn, checkOut, ok := parseStay(w, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	b, err := h.B.CreateBooking(r.Context(), req.RoomID, caller(r).UserID, checkIn, checkOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+strconv.FormatInt(b.ID, 10)+"/payment")
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) myBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.UserBookings(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.B.CancelBooking(r.Context(), id, caller(r).UserID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) paymentSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p := caller(r)
	out, err := h.Q.PaymentSummary(r.Context(), id, p.UserID, p.IsAdmin())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type paymentRequest struct {
	BookingID int64           `json:"booking_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"payment_method" validate:"required,max=50"`
}

func (h *Handlers) processPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// only the guest who made the booking may pay for it
	if _, err := h.Q.PaymentSummary(r.Context(), req.BookingID, caller(r).UserID, false); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.B.ProcessPayment(r.Context(), req.BookingID, req.Amount, req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ---- admin ----

func (h *Handlers) adminBookings(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, 100, 500)
	if !ok {
		return
	}
	out, err := h.Q.AllBookings(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) adminCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.B.CancelBooking(r.Context(), id, caller(r).UserID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
