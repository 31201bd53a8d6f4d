// Package auth keeps studio employee accounts in process memory.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const MinPasswordLength = 6

// Employee is a studio staff account. The password hash is never serialized.
type Employee struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Signup struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Service is an in-memory account store; accounts are lost on restart.
type Service struct {
	mu        sync.RWMutex
	employees []Employee
	byEmail   map[string]int
	cost      int
	logger    *zerolog.Logger
}

func NewService(cost int, logger *zerolog.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	l := logger.With().Str("component", "auth").Logger()
	return &Service{
		byEmail: make(map[string]int),
		cost:    cost,
		logger:  &l,
	}
}

// Seed creates the given accounts, skipping emails that already exist.
func (s *Service) Seed(ctx context.Context, accounts []Signup) error {
	for _, a := range accounts {
		if _, err := s.Signup(ctx, a); err != nil && !errors.Is(err, ErrEmailTaken) {
			return fmt.Errorf("seed %s: %w", a.Email, err)
		}
	}
	return nil
}

func (s *Service) Signup(_ context.Context, in Signup) (*Employee, error) {
	email := normalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || email == "" || in.Phone == "" || in.Password == "" || in.Role == "" {
		return nil, ErrMissingFields
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}

	emp := Employee{
		ID:           len(s.employees) + 1,
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: string(hash),
	}
	s.employees = append(s.employees, emp)
	s.byEmail[email] = len(s.employees) - 1

	s.logger.Info().Int("employee_id", emp.ID).Str("role", emp.Role).Msg("employee registered")
	return &emp, nil
}

func (s *Service) Login(_ context.Context, c Credentials) (*Employee, error) {
	email := normalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return nil, ErrMissingFields
	}

	s.mu.RLock()
	idx, ok := s.byEmail[email]
	var emp Employee
	if ok {
		emp = s.employees[idx]
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(c.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &emp, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
