package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"svstudio/internal/api"
	"svstudio/internal/auth"
	"svstudio/internal/availability"
	"svstudio/internal/config"
	"svstudio/internal/export"
	"svstudio/internal/google"
	"svstudio/internal/metrics"
	"svstudio/internal/notify"
	"svstudio/internal/repository"
	"svstudio/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", os.Getenv("SVSTUDIO_CONFIG_PATH"), "path to config.yaml")
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	// Without Google credentials the server still starts; calendar checks fail
	// and bookings are kept in the fallback store only.
	var gsrv *google.Services
	if gsrv, err = google.NewServices(ctx, cfg.Google.ServiceAccountKeyPath); err != nil {
		logger.Warn().Err(err).Msg("google services unavailable")
		gsrv = &google.Services{}
	}
	primary := google.NewSheetsService(gsrv.Sheets, cfg.Google.SheetID, cfg.Google.SheetRange, &logger)
	guard := google.NewCalendarGuard(gsrv.Calendar, cfg.Google.CalendarID, &logger)

	var (
		rdb      *redis.Client
		fallback repository.BookingStore
	)
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		fallback = repository.NewRedisCache(rdb, cfg.Redis.Key)
	} else {
		logger.Warn().Msg("redis not configured, fallback bookings are kept in memory")
		fallback = repository.NewMemoryCache()
	}
	store := repository.NewFailoverBookingStore(primary, fallback, &logger)
	checker := availability.NewChecker(store, &logger)

	var (
		emailSender notify.EmailSender
		smsSender   notify.SMSSender
	)
	if cfg.EmailEnabled() {
		emailSender = notify.NewSMTPSender(cfg.Email.Host, cfg.Email.Port, cfg.Email.User, cfg.Email.Pass, cfg.Email.From)
	} else {
		logger.Warn().Msg("email credentials missing, email notifications disabled")
	}
	if cfg.SMSEnabled() {
		smsSender = notify.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber)
	} else {
		logger.Warn().Msg("twilio credentials missing, sms notifications disabled")
	}
	directory := make(map[string]notify.Contact, len(cfg.Team))
	for name, m := range cfg.TeamDirectory() {
		directory[name] = notify.Contact{Name: m.Name, Email: m.Email, Phone: m.Phone}
	}
	dispatcher := notify.NewDispatcher(emailSender, smsSender, directory, notify.Messages{
		Studio:       cfg.Studio.Name,
		ContactEmail: cfg.Email.From,
		Location:     loc,
	}, &logger)

	bookings := service.NewBookingService(store, guard, checker, dispatcher, service.Rules{
		MinHours:     cfg.Booking.MinHours,
		MaxHours:     cfg.Booking.MaxHours,
		HourlyRate:   cfg.Booking.HourlyRate,
		BookingFee:   cfg.Booking.BookingFee,
		Currency:     cfg.Booking.Currency,
		PaymentToken: cfg.Booking.PaymentToken,
		Buffer:       cfg.Buffer(),
		Location:     loc,
	}, &logger)

	accounts := auth.NewService(0, &logger)
	if err := accounts.Seed(ctx, employeeSeeds(cfg)); err != nil {
		logger.Fatal().Err(err).Msg("seed employees")
	}

	reports := export.NewReportService(store, export.Config{
		Enabled:       cfg.Export.Enabled,
		StoragePath:   cfg.Export.StoragePath,
		RetentionDays: cfg.Export.RetentionDays,
	}, &logger)
	go reports.Start(ctx)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, rdb, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	srv := api.NewHTTPServer(api.Deps{
		Bookings:     bookings,
		Availability: checker,
		Accounts:     accounts,
		Reports:      store,
	}, api.Config{
		Port:               cfg.Server.Port,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		WriteRatePerMinute: cfg.Server.WriteRatePerMinute,
		OpenHour:           cfg.Booking.OpenHour,
		CloseHour:          cfg.Booking.CloseHour,
	}, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("API server shutdown")
		}
	}()

	logger.Info().Str("studio", cfg.Studio.Name).Int("port", cfg.Server.Port).Msg("studio booking server started")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
	logger.Info().Msg("studio booking server stopped")
}

func employeeSeeds(cfg *config.Config) []auth.Signup {
	if len(cfg.Employees) == 0 {
		return []auth.Signup{{
			FirstName: "Admin",
			LastName:  "User",
			Email:     "admin@svstudio.com",
			Phone:     "555-0100",
			Password:  "admin123",
			Role:      "studio-manager",
		}}
	}
	seeds := make([]auth.Signup, 0, len(cfg.Employees))
	for _, e := range cfg.Employees {
		seeds = append(seeds, auth.Signup{
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Email:     e.Email,
			Phone:     e.Phone,
			Password:  e.Password,
			Role:      e.Role,
		})
	}
	return seeds
}

func startHealthServer(ctx context.Context, port int, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rdb != nil {
			ctxPing, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
