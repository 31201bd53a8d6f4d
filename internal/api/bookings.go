package api

import (
	"errors"
	"net/http"
	"strconv"

	"svstudio/internal/availability"
	"svstudio/internal/metrics"
	"svstudio/internal/models"
	"svstudio/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// handleListBookings returns bookings filtered by member, date or month.
// GET /api/bookings?member=&date=  or  ?member=&month=
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("bookings_list")

	q := r.URL.Query()
	filter := models.BookingFilter{
		Member: q.Get("member"),
		Date:   q.Get("date"),
		Month:  q.Get("month"),
	}
	if filter.Date != "" {
		if _, err := models.ParseDate(filter.Date, nil); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
			return
		}
	}
	if filter.Month != "" && !models.ValidMonth(filter.Month) {
		writeError(w, http.StatusBadRequest, "invalid month; expected YYYY-MM")
		return
	}

	bookings, err := s.deps.Bookings.Bookings(r.Context(), filter)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list bookings")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleCreateBooking runs checkout.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("bookings_create")

	var req models.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conf, err := s.deps.Bookings.Submit(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unexpected booking error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrRange), errors.Is(err, service.ErrPayment):
		writeError(w, http.StatusBadRequest, svcErr.Message)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, svcErr.Message)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, svcErr.Message)
	}
}

// GET /api/members
func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("members")

	members, err := s.deps.Bookings.Members(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list members")
		writeError(w, http.StatusInternalServerError, "failed to load members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// GET /api/pricing
func (s *HTTPServer) handlePricing(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("pricing")
	writeJSON(w, http.StatusOK, s.deps.Bookings.Pricing())
}

type availabilityResponse struct {
	Member    string `json:"member"`
	Date      string `json:"date"`
	Start     int    `json:"start"`
	Duration  int    `json:"duration"`
	Available bool   `json:"available"`
}

// handleAvailability answers the advisory per-member slot check.
// GET /api/availability?member=&date=&start=&duration=
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("availability")

	q := r.URL.Query()
	member, date := q.Get("member"), q.Get("date")
	if member == "" || date == "" {
		writeError(w, http.StatusBadRequest, "member and date are required")
		return
	}
	if _, err := models.ParseDate(date, nil); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	start, err := strconv.Atoi(q.Get("start"))
	if err != nil || start < 0 || start > 23 {
		writeError(w, http.StatusBadRequest, "start must be an hour between 0 and 23")
		return
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil || duration < 1 {
		writeError(w, http.StatusBadRequest, "duration must be a positive number of hours")
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		Member:    member,
		Date:      date,
		Start:     start,
		Duration:  duration,
		Available: s.deps.Availability.IsAvailable(r.Context(), member, date, start, duration),
	})
}

// handleSlots lists the bookable hours of a day for one member.
// GET /api/slots?member=&date=
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("slots")

	q := r.URL.Query()
	member, date := q.Get("member"), q.Get("date")
	if member == "" || date == "" {
		writeError(w, http.StatusBadRequest, "member and date are required")
		return
	}
	if _, err := models.ParseDate(date, nil); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	bookings, err := s.deps.Bookings.Bookings(r.Context(), models.BookingFilter{Member: member, Date: date})
	if err != nil {
		// Same fail-open policy as the availability check.
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("member", member).Str("date", date).Msg("slots shown without bookings")
		bookings = nil
	}

	writeJSON(w, http.StatusOK, availability.DaySlots(bookings, s.cfg.OpenHour, s.cfg.CloseHour))
}
