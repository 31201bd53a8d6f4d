package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"svstudio/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/api/sheets/v4"
)

// ErrNotConfigured is returned when no spreadsheet is set up.
var ErrNotConfigured = errors.New("spreadsheet not configured")

const (
	colMember = iota
	colDate
	colStart
	colDuration
	colCustomer
	colEmail
	colPhone
	colStudio
	colCreated
	colTotal
	colPayment
	columnCount
)

// SheetsService stores bookings as rows of a spreadsheet tab. The first row
// of the range is a header and is never parsed.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	rng           string
	logger        *zerolog.Logger
}

func NewSheetsService(srv *sheets.Service, spreadsheetID, rng string, logger *zerolog.Logger) *SheetsService {
	l := logger.With().Str("component", "sheets").Logger()
	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		rng:           rng,
		logger:        &l,
	}
}

// List reads every row and filters in memory.
func (s *SheetsService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if s.srv == nil || s.spreadsheetID == "" {
		return nil, ErrNotConfigured
	}

	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read bookings sheet: %w", err)
	}

	all := make([]models.Booking, 0, len(resp.Values))
	for i := 1; i < len(resp.Values); i++ {
		b, err := bookingFromRow(resp.Values[i])
		if err != nil {
			s.logger.Debug().Err(err).Int("row", i+1).Msg("skipping malformed booking row")
			continue
		}
		all = append(all, *b)
	}

	return models.FilterBookings(all, filter), nil
}

// Append adds one row after the last row of the range.
func (s *SheetsService) Append(ctx context.Context, b *models.Booking) error {
	if s.srv == nil || s.spreadsheetID == "" {
		return ErrNotConfigured
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(b)}}
	_, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}

	s.logger.Info().Str("member", b.Member).Str("date", b.Date).Int("start", b.Start).Msg("booking row appended")
	return nil
}

func bookingRowValues(b *models.Booking) []interface{} {
	created := b.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []interface{}{
		b.Member,
		b.Date,
		b.Start,
		b.Duration,
		b.Customer,
		b.Email,
		b.Phone,
		b.Studio,
		created.Format(time.RFC3339),
		b.Total,
		b.PaymentStatus,
	}
}

func bookingFromRow(row []interface{}) (*models.Booking, error) {
	cells := make([]string, columnCount)
	for i := 0; i < len(row) && i < columnCount; i++ {
		cells[i] = strings.TrimSpace(fmt.Sprint(row[i]))
	}

	start, err := strconv.Atoi(cells[colStart])
	if err != nil {
		return nil, fmt.Errorf("start %q: %w", cells[colStart], err)
	}
	duration, err := strconv.Atoi(cells[colDuration])
	if err != nil {
		return nil, fmt.Errorf("duration %q: %w", cells[colDuration], err)
	}

	return &models.Booking{
		Member:        cells[colMember],
		Date:          cells[colDate],
		Start:         start,
		Duration:      duration,
		Customer:      cells[colCustomer],
		Email:         cells[colEmail],
		Phone:         cells[colPhone],
		Studio:        cells[colStudio],
		Created:       parseCreated(cells[colCreated]),
		Total:         parseAmount(cells[colTotal]),
		PaymentStatus: cells[colPayment],
	}, nil
}

func parseCreated(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "1/2/2006 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseAmount(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
