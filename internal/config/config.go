package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		Port               int      `yaml:"port" envconfig:"PORT"`
		AllowedOrigins     []string `yaml:"allowed_origins" split_words:"true"`
		WriteRatePerMinute int      `yaml:"write_rate_per_minute" split_words:"true"`
	} `yaml:"server"`

	Google struct {
		SheetID               string `yaml:"sheet_id" split_words:"true"`
		SheetRange            string `yaml:"sheet_range" split_words:"true"`
		CalendarID            string `yaml:"calendar_id" split_words:"true"`
		ServiceAccountKeyPath string `yaml:"service_account_key_path" split_words:"true"`
	} `yaml:"google"`

	// Booking rules also accept the short variable names (BUFFER_HOURS, MIN_HOURS...).
	Booking struct {
		BufferHours  *int    `yaml:"buffer_hours" envconfig:"BUFFER_HOURS"`
		MinHours     int     `yaml:"min_hours" envconfig:"MIN_HOURS"`
		MaxHours     int     `yaml:"max_hours" envconfig:"MAX_HOURS"`
		HourlyRate   float64 `yaml:"hourly_rate" envconfig:"HOURLY_RATE"`
		BookingFee   float64 `yaml:"booking_fee" envconfig:"BOOKING_FEE"`
		Currency     string  `yaml:"currency"`
		PaymentToken string  `yaml:"payment_token" envconfig:"PAYMENT_TOKEN"`
		OpenHour     int     `yaml:"open_hour" envconfig:"OPEN_HOUR"`
		CloseHour    int     `yaml:"close_hour" envconfig:"CLOSE_HOUR"`
		Timezone     string  `yaml:"timezone"`
	} `yaml:"booking"`

	Email struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		From string `yaml:"from"`
	} `yaml:"email"`

	Twilio struct {
		AccountSID  string `yaml:"account_sid" split_words:"true"`
		AuthToken   string `yaml:"auth_token" split_words:"true"`
		PhoneNumber string `yaml:"phone_number" split_words:"true"`
	} `yaml:"twilio"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port" split_words:"true"`
		PrometheusEnabled bool `yaml:"prometheus_enabled" split_words:"true"`
		PrometheusPort    int  `yaml:"prometheus_port" split_words:"true"`
	} `yaml:"monitoring"`

	Export struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path" split_words:"true"`
		RetentionDays int    `yaml:"retention_days" split_words:"true"`
	} `yaml:"export"`

	Studio struct {
		Name string `yaml:"name"`
	} `yaml:"studio"`

	Team      []TeamMember   `yaml:"team" ignored:"true"`
	Employees []EmployeeSeed `yaml:"employees" ignored:"true"`
}

// TeamMember is the contact card used for team-member notifications.
type TeamMember struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// EmployeeSeed is an account created at startup.
type EmployeeSeed struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
}

// Load reads the YAML file at path (optional when path is empty and the default
// file is absent), then applies .env and process environment overrides.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err = envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.WriteRatePerMinute == 0 {
		c.Server.WriteRatePerMinute = 30
	}
	if c.Google.SheetRange == "" {
		c.Google.SheetRange = "Bookings!A:K"
	}
	if c.Google.ServiceAccountKeyPath == "" {
		c.Google.ServiceAccountKeyPath = "./service-account.json"
	}
	if c.Booking.BufferHours == nil {
		buffer := 1
		c.Booking.BufferHours = &buffer
	}
	if c.Booking.MinHours == 0 {
		c.Booking.MinHours = 2
	}
	if c.Booking.MaxHours == 0 {
		c.Booking.MaxHours = 8
	}
	if c.Booking.HourlyRate == 0 {
		c.Booking.HourlyRate = 75
	}
	if c.Booking.BookingFee == 0 {
		c.Booking.BookingFee = 25
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "USD"
	}
	if c.Booking.PaymentToken == "" {
		c.Booking.PaymentToken = "mock_payment_success"
	}
	if c.Booking.OpenHour == 0 && c.Booking.CloseHour == 0 {
		c.Booking.OpenHour, c.Booking.CloseHour = 8, 20
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@svstudio.com"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "svstudio:bookings"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Export.StoragePath == "" {
		c.Export.StoragePath = "data/exports"
	}
	if c.Studio.Name == "" {
		c.Studio.Name = "SVStudio"
	}
}

// Validate rejects booking rules that can never be satisfied.
func (c *Config) Validate() error {
	b := c.Booking
	if b.MinHours < 1 {
		return fmt.Errorf("booking.min_hours must be positive, got %d", b.MinHours)
	}
	if b.MinHours > b.MaxHours {
		return fmt.Errorf("booking.min_hours (%d) exceeds booking.max_hours (%d)", b.MinHours, b.MaxHours)
	}
	if b.BufferHours != nil && *b.BufferHours < 0 {
		return fmt.Errorf("booking.buffer_hours must not be negative, got %d", *b.BufferHours)
	}
	if b.OpenHour < 0 || b.CloseHour > 24 || b.OpenHour >= b.CloseHour {
		return fmt.Errorf("invalid booking window %d-%d", b.OpenHour, b.CloseHour)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("booking.timezone: %w", err)
	}
	return nil
}

// Location returns the studio time zone, defaulting to the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Booking.Timezone)
}

// Buffer is the margin checked around a booking on the shared calendar.
func (c *Config) Buffer() time.Duration {
	if c.Booking.BufferHours == nil {
		return 0
	}
	return time.Duration(*c.Booking.BufferHours) * time.Hour
}

// EmailEnabled reports whether SMTP credentials are complete.
func (c *Config) EmailEnabled() bool {
	return c.Email.Host != "" && c.Email.User != "" && c.Email.Pass != ""
}

// SMSEnabled reports whether Twilio credentials are complete.
func (c *Config) SMSEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.PhoneNumber != ""
}

// TeamDirectory indexes team members by name.
func (c *Config) TeamDirectory() map[string]TeamMember {
	dir := make(map[string]TeamMember, len(c.Team))
	for _, m := range c.Team {
		dir[m.Name] = m
	}
	return dir
}
