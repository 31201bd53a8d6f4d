// Package google wraps the Sheets and Calendar APIs used as the booking
// store and the shared studio calendar.
package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Services bundles the API clients authorized with one service account.
type Services struct {
	Sheets   *sheets.Service
	Calendar *calendar.Service
}

// NewServices authorizes the service account key at keyPath for the calendar
// and spreadsheet scopes.
func NewServices(ctx context.Context, keyPath string) (*Services, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(key, calendar.CalendarScope, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	return NewServicesWithOptions(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
}

// NewServicesWithOptions builds both clients from explicit client options.
func NewServicesWithOptions(ctx context.Context, opts ...option.ClientOption) (*Services, error) {
	sheetsSrv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	calendarSrv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}
	return &Services{Sheets: sheetsSrv, Calendar: calendarSrv}, nil
}
