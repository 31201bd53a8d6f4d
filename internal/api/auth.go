package api

import (
	"errors"
	"net/http"

	"svstudio/internal/auth"
	"svstudio/internal/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

type employeeResponse struct {
	Success  bool           `json:"success"`
	Employee *auth.Employee `json:"employee"`
}

// POST /api/auth/login
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("auth_login")

	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	emp, err := s.deps.Accounts.Login(r.Context(), creds)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, employeeResponse{Success: true, Employee: emp})
	}
}

// POST /api/auth/signup
func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("auth_signup")

	var in auth.Signup
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	emp, err := s.deps.Accounts.Signup(r.Context(), in)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("signup")
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, employeeResponse{Success: true, Employee: emp})
	}
}
