// Package availability answers whether an hour range is free for a team member.
package availability

import (
	"context"

	"svstudio/internal/models"

	"github.com/rs/zerolog"
)

// Lister reads bookings matching a filter.
type Lister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

// Checker is the per-member slot check shown to customers before checkout.
// It is advisory: the shared calendar has the final word on submission.
type Checker struct {
	store  Lister
	logger *zerolog.Logger
}

func NewChecker(store Lister, logger *zerolog.Logger) *Checker {
	l := logger.With().Str("component", "availability").Logger()
	return &Checker{store: store, logger: &l}
}

// IsAvailable reports whether [start, start+duration) is free for member on date.
// When the store cannot be read the range is reported as available (fail-open),
// which keeps booking usable offline and can let a double booking through.
func (c *Checker) IsAvailable(ctx context.Context, member, date string, start, duration int) bool {
	bookings, err := c.store.List(ctx, models.BookingFilter{Member: member, Date: date})
	if err != nil {
		c.logger.Warn().Err(err).Str("member", member).Str("date", date).Msg("availability check failed open")
		return true
	}
	return Free(bookings, start, duration)
}

// Free reports whether no booking overlaps [start, start+duration).
func Free(bookings []models.Booking, start, duration int) bool {
	for i := range bookings {
		if bookings[i].Overlaps(start, duration) {
			return false
		}
	}
	return true
}
