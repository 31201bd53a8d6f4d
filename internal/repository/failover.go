package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"svstudio/internal/metrics"
	"svstudio/internal/models"

	"github.com/rs/zerolog"
)

// FailoverBookingStore serves bookings from the primary store and switches to
// the fallback for a single call when that call fails on the primary. Every
// call tries the primary first; the down flag only drives logging and Healthy.
//
// Bookings written to the fallback stay there. Nothing copies them back into
// the primary once it recovers, so the two lists can diverge.
type FailoverBookingStore struct {
	primary  BookingStore
	fallback BookingStore
	logger   *zerolog.Logger

	isDown atomic.Bool
}

func NewFailoverBookingStore(primary, fallback BookingStore, logger *zerolog.Logger) *FailoverBookingStore {
	l := logger.With().Str("component", "booking_store").Logger()
	return &FailoverBookingStore{
		primary:  primary,
		fallback: fallback,
		logger:   &l,
	}
}

func (r *FailoverBookingStore) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	out, err := r.primary.List(ctx, filter)
	if err == nil {
		r.markUp()
		return out, nil
	}
	if isCallerGone(err) {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	r.markDown("list", err)

	out, ferr := r.fallback.List(ctx, filter)
	if ferr != nil {
		return nil, fmt.Errorf("list bookings: %w", errors.Join(err, ferr))
	}
	return out, nil
}

func (r *FailoverBookingStore) Append(ctx context.Context, b *models.Booking) error {
	err := r.primary.Append(ctx, b)
	if err == nil {
		r.markUp()
		return nil
	}
	if isCallerGone(err) {
		return fmt.Errorf("append booking: %w", err)
	}
	r.markDown("append", err)

	if ferr := r.fallback.Append(ctx, b); ferr != nil {
		return fmt.Errorf("append booking: %w", errors.Join(err, ferr))
	}
	r.logger.Warn().Str("member", b.Member).Str("date", b.Date).Msg("booking written to fallback store only")
	return nil
}

// Healthy reports whether the last primary call succeeded.
func (r *FailoverBookingStore) Healthy() bool {
	return !r.isDown.Load()
}

// isCallerGone reports errors caused by the caller's context rather than by
// the primary store.
func isCallerGone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *FailoverBookingStore) markDown(op string, err error) {
	metrics.IncStoreFallback(op)
	if !r.isDown.Swap(true) {
		r.logger.Warn().Err(err).Str("operation", op).Msg("primary booking store failed, switching to fallback")
	}
}

func (r *FailoverBookingStore) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("primary booking store recovered")
	}
}
