package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"svstudio/internal/metrics"
	"svstudio/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
)

// ErrCalendarNotConfigured is returned when the shared calendar client or id is missing.
var ErrCalendarNotConfigured = errors.New("calendar not configured")

// CalendarGuard checks the shared studio calendar for busy time and records
// confirmed bookings on it.
type CalendarGuard struct {
	srv        *calendar.Service
	calendarID string
	logger     *zerolog.Logger
}

func NewCalendarGuard(srv *calendar.Service, calendarID string, logger *zerolog.Logger) *CalendarGuard {
	l := logger.With().Str("component", "calendar").Logger()
	return &CalendarGuard{srv: srv, calendarID: calendarID, logger: &l}
}

// HasConflict queries free/busy for [start-buffer, end+buffer). Any busy
// interval in the window is a conflict. Errors are returned as-is: a failed
// check must not be treated as free time.
func (g *CalendarGuard) HasConflict(ctx context.Context, member string, start, end time.Time, buffer time.Duration) (bool, error) {
	if g.srv == nil || g.calendarID == "" {
		return false, ErrCalendarNotConfigured
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: start.Add(-buffer).Format(time.RFC3339),
		TimeMax: end.Add(buffer).Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}

	began := time.Now()
	resp, err := g.srv.Freebusy.Query(req).Context(ctx).Do()
	metrics.ObserveCalendar("freebusy", time.Since(began).Seconds())
	if err != nil {
		return false, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return false, nil
	}
	if len(cal.Errors) > 0 {
		return false, fmt.Errorf("freebusy %s: %s", g.calendarID, cal.Errors[0].Reason)
	}

	if len(cal.Busy) > 0 {
		g.logger.Info().
			Str("member", member).
			Str("time_min", req.TimeMin).
			Str("time_max", req.TimeMax).
			Int("busy", len(cal.Busy)).
			Msg("calendar conflict")
		return true, nil
	}
	return false, nil
}

// CreateEvent inserts the booking on the shared calendar and returns the event id.
func (g *CalendarGuard) CreateEvent(ctx context.Context, b *models.Booking, start, end time.Time) (string, error) {
	if g.srv == nil || g.calendarID == "" {
		return "", ErrCalendarNotConfigured
	}

	ev := &calendar.Event{
		Summary:     eventSummary(b),
		Description: eventDescription(b),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	began := time.Now()
	created, err := g.srv.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	metrics.ObserveCalendar("insert", time.Since(began).Seconds())
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	g.logger.Info().Str("event_id", created.Id).Str("member", b.Member).Str("date", b.Date).Msg("calendar event created")
	return created.Id, nil
}

func eventSummary(b *models.Booking) string {
	customer := b.Customer
	if customer == "" {
		customer = "Client"
	}
	return fmt.Sprintf("Booking: %s — %s", b.Member, customer)
}

func eventDescription(b *models.Booking) string {
	contact := strings.Join(strings.Fields(strings.Join([]string{b.Customer, b.Email, b.Phone}, " ")), " ")
	return fmt.Sprintf("Booking for %s. Customer: %s. Total: $%s",
		b.Member, contact, strconv.FormatFloat(b.Total, 'f', -1, 64))
}
