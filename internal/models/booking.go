package models

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Payment statuses recorded on a booking.
const (
	PaymentPaid    = "paid"
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
)

// Booking is a studio session for one team member on one day.
// Start and Duration are whole hours; the occupied range is [Start, Start+Duration).
type Booking struct {
	Member        string    `json:"member"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Start         int       `json:"start"`
	Duration      int       `json:"duration"`
	Customer      string    `json:"customer"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Studio        string    `json:"studio"`
	Total         float64   `json:"total,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Created       time.Time `json:"created"`
}

// End returns the first hour after the booking.
func (b *Booking) End() int {
	return b.Start + b.Duration
}

// Overlaps reports whether [start, start+duration) intersects the booking.
// Two intervals [A, B) and [C, D) overlap if A < D && C < B, so bookings that
// only touch at a boundary hour do not conflict.
func (b *Booking) Overlaps(start, duration int) bool {
	return start < b.End() && b.Start < start+duration
}

// Covers reports whether the booking occupies the given hour slot.
func (b *Booking) Covers(hour int) bool {
	return hour >= b.Start && hour < b.End()
}

// StartTime resolves the booking start on its date in loc.
func (b *Booking) StartTime(loc *time.Location) (time.Time, error) {
	day, err := ParseDate(b.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(b.Start) * time.Hour), nil
}

// BookingFilter selects bookings by member, exact date or month.
// Empty fields match everything.
type BookingFilter struct {
	Member string
	Date   string // exact YYYY-MM-DD
	Month  string // YYYY-MM, compared with the first 7 characters of the date
}

// Match reports whether b satisfies every non-empty criterion.
func (f BookingFilter) Match(b *Booking) bool {
	if f.Member != "" && b.Member != f.Member {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Month != "" {
		if len(b.Date) < len(MonthLayout) || b.Date[:len(MonthLayout)] != f.Month {
			return false
		}
	}
	return true
}

// FilterBookings keeps the order of all and returns the matching subset.
func FilterBookings(all []Booking, f BookingFilter) []Booking {
	out := make([]Booking, 0, len(all))
	for i := range all {
		if f.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

// UniqueMembers returns member names in first-seen order, skipping blanks.
func UniqueMembers(all []Booking) []string {
	seen := make(map[string]struct{}, len(all))
	names := make([]string, 0)
	for _, b := range all {
		name := strings.TrimSpace(b.Member)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// BookingRequest is the checkout payload submitted by the booking page.
// Start is a pointer so that a missing start hour can be told apart from 0.
type BookingRequest struct {
	Member       string `json:"member"`
	Date         string `json:"date"`
	Start        *int   `json:"start"`
	Duration     int    `json:"duration"`
	Customer     string `json:"customer"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Studio       string `json:"studio"`
	PaymentToken string `json:"paymentToken"`
}

// ParseDate parses YYYY-MM-DD at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// ValidMonth reports whether s is a YYYY-MM month.
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}
