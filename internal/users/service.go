package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/facturador/facturador/backend/go-services/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var (
	ErrMissingCredentials = errors.New("users: email and password are required")
	ErrInvalidEmail       = errors.New("users: invalid email")
	ErrPasswordTooShort   = errors.New("users: password too short")
	ErrEmailTaken         = errors.New("users: email already registered")
	ErrUserNotFound       = errors.New("users: user not found")
	ErrInvalidPassword    = errors.New("users: invalid password")
)

// RegisterInput is the data accepted at registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	TenantID string
}

// Service encapsulates user-related business logic
type Service struct {
	repo     UserRepository
	hashCost int
}

type Option func(*Service)

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(r UserRepository, opts ...Option) *Service {
	s := &Service{repo: r, hashCost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register validates the input and creates the user. A duplicate email is
// reported as ErrEmailTaken, never merged into the existing account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "users.Register"

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordTooShort)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		TenantID:     in.TenantID,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Authenticate checks an email/password pair. Unknown users and wrong
// passwords are distinguished (ErrUserNotFound vs ErrInvalidPassword).
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "users.Authenticate"

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCredentials)
	}
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPassword)
	}
	return u, nil
}

// GetByID returns (nil, nil) when the user does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SeedDemo registers the demo account unless it already exists.
func (s *Service) SeedDemo(ctx context.Context, in RegisterInput) (*models.User, error) {
	u, err := s.Register(ctx, in)
	if errors.Is(err, ErrEmailTaken) {
		return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	}
	return u, err
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
