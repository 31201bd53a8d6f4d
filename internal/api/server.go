// Package api exposes the booking, pricing, availability and employee
// endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"svstudio/internal/auth"
	"svstudio/internal/export"
	"svstudio/internal/models"
	"svstudio/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type BookingService interface {
	Submit(ctx context.Context, req *models.BookingRequest) (*service.Confirmation, error)
	Bookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Members(ctx context.Context) ([]string, error)
	Pricing() service.Pricing
}

type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, member, date string, start, duration int) bool
}

type Accounts interface {
	Login(ctx context.Context, c auth.Credentials) (*auth.Employee, error)
	Signup(ctx context.Context, in auth.Signup) (*auth.Employee, error)
}

// Deps are the collaborators behind the handlers. A nil Reports disables
// the export endpoint.
type Deps struct {
	Bookings     BookingService
	Availability AvailabilityChecker
	Accounts     Accounts
	Reports      export.Lister
}

type Config struct {
	Port               int
	AllowedOrigins     []string
	WriteRatePerMinute int
	OpenHour           int
	CloseHour          int
}

type HTTPServer struct {
	deps    Deps
	cfg     Config
	limiter *RateLimiter
	server  *http.Server
	log     *zerolog.Logger
}

func NewHTTPServer(deps Deps, cfg Config, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		deps:    deps,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.WriteRatePerMinute),
		log:     &l,
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(s.routes())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRequestLog(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() *httprouter.Router {
	router := httprouter.New()

	router.GET("/healthz", s.handleHealth)

	router.GET("/api/bookings", s.handleListBookings)
	router.POST("/api/bookings", s.limiter.Limit(s.handleCreateBooking))
	router.GET("/api/members", s.handleMembers)
	router.GET("/api/pricing", s.handlePricing)
	router.GET("/api/availability", s.handleAvailability)
	router.GET("/api/slots", s.handleSlots)

	router.POST("/api/auth/login", s.limiter.Limit(s.handleLogin))
	router.POST("/api/auth/signup", s.limiter.Limit(s.handleSignup))

	if s.deps.Reports != nil {
		router.GET("/api/export", s.handleExport)
	}

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		zerolog.Ctx(r.Context()).Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panic")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return router
}

// Handler returns the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
