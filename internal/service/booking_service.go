package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"svstudio/internal/metrics"
	"svstudio/internal/models"
	"svstudio/internal/notify"

	"github.com/rs/zerolog"
)

type BookingStore interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Append(ctx context.Context, b *models.Booking) error
}

type CalendarGuard interface {
	HasConflict(ctx context.Context, member string, start, end time.Time, buffer time.Duration) (bool, error)
	CreateEvent(ctx context.Context, b *models.Booking, start, end time.Time) (string, error)
}

type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, member, date string, start, duration int) bool
}

type Notifier interface {
	Notify(ctx context.Context, b *models.Booking) notify.Report
}

// Rules are the booking limits and prices applied at checkout.
type Rules struct {
	MinHours     int
	MaxHours     int
	HourlyRate   float64
	BookingFee   float64
	Currency     string
	PaymentToken string
	Buffer       time.Duration
	Location     *time.Location

	// NotifyTimeout bounds how long checkout waits for notifications.
	NotifyTimeout time.Duration
}

const defaultNotifyTimeout = 15 * time.Second

// Price is the total charged for a session of the given length.
func (r Rules) Price(duration int) float64 {
	return r.HourlyRate*float64(duration) + r.BookingFee
}

// Pricing is the public price list.
type Pricing struct {
	HourlyRate float64 `json:"hourlyRate"`
	BookingFee float64 `json:"bookingFee"`
	Currency   string  `json:"currency"`
}

// Confirmation is returned for a completed booking.
type Confirmation struct {
	Success bool    `json:"success"`
	EventID string  `json:"eventId"`
	Total   float64 `json:"total"`
}

type BookingService struct {
	store        BookingStore
	calendar     CalendarGuard
	availability AvailabilityChecker
	notifier     Notifier
	rules        Rules
	now          func() time.Time
	logger       *zerolog.Logger
}

func NewBookingService(
	store BookingStore,
	calendar CalendarGuard,
	availability AvailabilityChecker,
	notifier Notifier,
	rules Rules,
	logger *zerolog.Logger,
) *BookingService {
	if rules.Location == nil {
		rules.Location = time.Local
	}
	if rules.NotifyTimeout <= 0 {
		rules.NotifyTimeout = defaultNotifyTimeout
	}
	l := logger.With().Str("component", "booking_service").Logger()
	return &BookingService{
		store:        store,
		calendar:     calendar,
		availability: availability,
		notifier:     notifier,
		rules:        rules,
		now:          time.Now,
		logger:       &l,
	}
}

// Submit runs checkout: validation, duration limits, payment, slot and
// calendar checks, calendar event, store append and notifications, in that
// order. Calendar failures abort the submission. A store failure after the
// event was created is reported but the event is left in place. Notification
// failures never change the result.
func (s *BookingService) Submit(ctx context.Context, req *models.BookingRequest) (*Confirmation, error) {
	if err := s.validate(req); err != nil {
		metrics.IncBookingSubmission("invalid")
		return nil, err
	}

	if req.Duration < s.rules.MinHours {
		metrics.IncBookingSubmission("out_of_range")
		return nil, newError(ErrRange, fmt.Sprintf("Minimum booking is %d hours", s.rules.MinHours), nil)
	}
	if req.Duration > s.rules.MaxHours {
		metrics.IncBookingSubmission("out_of_range")
		return nil, newError(ErrRange, fmt.Sprintf("Maximum booking is %d hours", s.rules.MaxHours), nil)
	}

	if req.PaymentToken == "" {
		metrics.IncBookingSubmission("payment_rejected")
		return nil, newError(ErrPayment, "Payment required", nil)
	}
	total := s.rules.Price(req.Duration)
	if req.PaymentToken != s.rules.PaymentToken {
		metrics.IncBookingSubmission("payment_rejected")
		return nil, newError(ErrPayment, "Payment validation failed", nil)
	}

	b := &models.Booking{
		Member:        strings.TrimSpace(req.Member),
		Date:          req.Date,
		Start:         *req.Start,
		Duration:      req.Duration,
		Customer:      strings.TrimSpace(req.Customer),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Studio:        req.Studio,
		Total:         total,
		PaymentStatus: models.PaymentPaid,
	}

	if s.availability != nil && !s.availability.IsAvailable(ctx, b.Member, b.Date, b.Start, b.Duration) {
		metrics.IncBookingSubmission("conflict")
		return nil, newError(ErrConflict, "Selected time is already booked for this team member", nil)
	}

	start, err := b.StartTime(s.rules.Location)
	if err != nil {
		metrics.IncBookingSubmission("invalid")
		return nil, newError(ErrValidation, "Invalid date", err)
	}
	end := start.Add(time.Duration(b.Duration) * time.Hour)

	conflict, err := s.calendar.HasConflict(ctx, b.Member, start, end, s.rules.Buffer)
	if err != nil {
		metrics.IncBookingSubmission("calendar_error")
		s.logger.Error().Err(err).Str("member", b.Member).Str("date", b.Date).Msg("calendar check failed")
		return nil, newError(ErrExternalService, "Calendar check failed", err)
	}
	if conflict {
		metrics.IncBookingSubmission("conflict")
		return nil, newError(ErrConflict, "Time range conflicts with existing calendar events (including buffer)", nil)
	}

	eventID, err := s.calendar.CreateEvent(ctx, b, start, end)
	if err != nil {
		metrics.IncBookingSubmission("calendar_error")
		s.logger.Error().Err(err).Str("member", b.Member).Str("date", b.Date).Msg("calendar event creation failed")
		return nil, newError(ErrExternalService, "Could not create calendar event", err)
	}

	b.Created = s.now().UTC()
	// The event already exists, so the row is written even if the client went away.
	if err := s.store.Append(context.WithoutCancel(ctx), b); err != nil {
		metrics.IncBookingSubmission("store_error")
		// The event stays on the calendar without a matching booking row.
		s.logger.Error().Err(err).
			Str("event_id", eventID).
			Str("member", b.Member).
			Str("date", b.Date).
			Int("start", b.Start).
			Msg("calendar event created but booking was not stored")
		return nil, newError(ErrExternalService, "Booking could not be saved", err)
	}

	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rules.NotifyTimeout)
		report := s.notifier.Notify(notifyCtx, b)
		cancel()
		if report.Failed() > 0 {
			s.logger.Warn().Str("event_id", eventID).Int("failed", report.Failed()).Int("sent", report.Sent()).Msg("some booking notifications failed")
		}
	}

	metrics.IncBookingSubmission("completed")
	s.logger.Info().
		Str("event_id", eventID).
		Str("member", b.Member).
		Str("date", b.Date).
		Int("start", b.Start).
		Int("duration", b.Duration).
		Float64("total", total).
		Msg("booking completed")

	return &Confirmation{Success: true, EventID: eventID, Total: total}, nil
}

func (s *BookingService) validate(req *models.BookingRequest) error {
	if req == nil ||
		strings.TrimSpace(req.Member) == "" ||
		req.Date == "" ||
		req.Start == nil ||
		req.Duration == 0 ||
		strings.TrimSpace(req.Studio) == "" ||
		strings.TrimSpace(req.Customer) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" {
		return newError(ErrValidation, "Missing fields", nil)
	}
	if _, err := models.ParseDate(req.Date, s.rules.Location); err != nil {
		return newError(ErrValidation, "Invalid date, expected YYYY-MM-DD", err)
	}
	if *req.Start < 0 || *req.Start > 23 {
		return newError(ErrValidation, "Start hour must be between 0 and 23", nil)
	}
	return nil
}

// Bookings lists stored bookings matching the filter.
func (s *BookingService) Bookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	return s.store.List(ctx, filter)
}

// Members lists the team members that appear in stored bookings, in store order.
func (s *BookingService) Members(ctx context.Context) ([]string, error) {
	all, err := s.store.List(ctx, models.BookingFilter{})
	if err != nil {
		return nil, err
	}
	return models.UniqueMembers(all), nil
}

func (s *BookingService) Pricing() Pricing {
	return Pricing{
		HourlyRate: s.rules.HourlyRate,
		BookingFee: s.rules.BookingFee,
		Currency:   s.rules.Currency,
	}
}
