package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"svstudio/internal/models"
)

// Lister reads bookings matching a filter.
type Lister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

var bookingColumns = []string{
	"Member", "Date", "Start", "End", "Hours", "Customer", "Email", "Phone",
	"Studio", "Total", "Payment", "Created",
}

var summaryColumns = []string{"Member", "Bookings", "Hours", "Revenue"}

type memberSummary struct {
	member   string
	bookings int
	hours    int
	revenue  float64
}

// BuildMonthlyReport writes an xlsx workbook with every booking of month
// (YYYY-MM) and a per-member summary sheet.
func BuildMonthlyReport(ctx context.Context, lister Lister, month string, out io.Writer) error {
	if !models.ValidMonth(month) {
		return fmt.Errorf("invalid month %q, expected YYYY-MM", month)
	}

	bookings, err := lister.List(ctx, models.BookingFilter{Month: month})
	if err != nil {
		return fmt.Errorf("list bookings for %s: %w", month, err)
	}

	w := NewExcelizeWriter()
	defer w.Close()

	if err := writeReport(w, month, bookings); err != nil {
		return err
	}
	return w.Save(out)
}

func writeReport(w SheetWriter, month string, bookings []models.Booking) error {
	if err := w.AddSheet("Bookings " + month); err != nil {
		return err
	}
	if err := w.WriteHeader(bookingColumns); err != nil {
		return err
	}

	var order []string
	totals := make(map[string]*memberSummary)
	for i := range bookings {
		b := &bookings[i]
		if err := w.WriteRow(bookingRow(b)); err != nil {
			return err
		}

		sum, ok := totals[b.Member]
		if !ok {
			sum = &memberSummary{member: b.Member}
			totals[b.Member] = sum
			order = append(order, b.Member)
		}
		sum.bookings++
		sum.hours += b.Duration
		sum.revenue += b.Total
	}

	if err := w.AddSheet("Summary"); err != nil {
		return err
	}
	if err := w.WriteHeader(summaryColumns); err != nil {
		return err
	}
	for _, name := range order {
		s := totals[name]
		if err := w.WriteRow([]interface{}{s.member, s.bookings, s.hours, s.revenue}); err != nil {
			return err
		}
	}
	return nil
}

func bookingRow(b *models.Booking) []interface{} {
	created := ""
	if !b.Created.IsZero() {
		created = b.Created.Format(time.RFC3339)
	}
	return []interface{}{
		b.Member,
		b.Date,
		fmt.Sprintf("%02d:00", b.Start),
		fmt.Sprintf("%02d:00", b.End()),
		b.Duration,
		b.Customer,
		b.Email,
		b.Phone,
		b.Studio,
		b.Total,
		b.PaymentStatus,
		created,
	}
}
