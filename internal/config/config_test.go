package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	t.Setenv("TEST_SHEET", "sheet-from-env")
	t.Setenv("HOURLY_RATE", "100")
	t.Setenv("GOOGLE_CALENDAR_ID", "studio@group.calendar.google.com")

	path := writeConfig(t, `
google:
  sheet_id: ${TEST_SHEET}
booking:
  min_hours: 3
  max_hours: 6
  buffer_hours: 0
  timezone: UTC
team:
  - name: Rey
    email: rey@svstudio.com
    phone: "+1555123456"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-from-env", cfg.Google.SheetID)
	assert.Equal(t, "studio@group.calendar.google.com", cfg.Google.CalendarID)
	assert.Equal(t, 3, cfg.Booking.MinHours)
	assert.Equal(t, 6, cfg.Booking.MaxHours)
	assert.Equal(t, 100.0, cfg.Booking.HourlyRate)
	assert.Equal(t, time.Duration(0), cfg.Buffer())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	dir := cfg.TeamDirectory()
	assert.Equal(t, "rey@svstudio.com", dir["Rey"].Email)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "studio:\n  name: Test Studio\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Buffer())
	assert.Equal(t, 2, cfg.Booking.MinHours)
	assert.Equal(t, 8, cfg.Booking.MaxHours)
	assert.Equal(t, 25.0, cfg.Booking.BookingFee)
	assert.Equal(t, "USD", cfg.Booking.Currency)
	assert.Equal(t, "mock_payment_success", cfg.Booking.PaymentToken)
	assert.Equal(t, 8, cfg.Booking.OpenHour)
	assert.Equal(t, 20, cfg.Booking.CloseHour)
	assert.Equal(t, "Bookings!A:K", cfg.Google.SheetRange)
	assert.Equal(t, "Test Studio", cfg.Studio.Name)
	assert.Equal(t, "svstudio:bookings", cfg.Redis.Key)
	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.SMSEnabled())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("ExplicitMissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "booking: [1, 2"))
		assert.Error(t, err)
	})

	t.Run("MinAboveMax", func(t *testing.T) {
		_, err := Load(writeConfig(t, "booking:\n  min_hours: 5\n  max_hours: 3\n"))
		assert.ErrorContains(t, err, "exceeds")
	})

	t.Run("BadTimezone", func(t *testing.T) {
		_, err := Load(writeConfig(t, "booking:\n  timezone: Mars/Olympus\n"))
		assert.Error(t, err)
	})
}

func TestChannelsEnabled(t *testing.T) {
	cfg := &Config{}
	cfg.Email.Host = "smtp.example.com"
	cfg.Email.User = "user"
	assert.False(t, cfg.EmailEnabled())
	cfg.Email.Pass = "secret"
	assert.True(t, cfg.EmailEnabled())

	cfg.Twilio.AccountSID = "AC123"
	cfg.Twilio.AuthToken = "token"
	assert.False(t, cfg.SMSEnabled())
	cfg.Twilio.PhoneNumber = "+15550000000"
	assert.True(t, cfg.SMSEnabled())
}
