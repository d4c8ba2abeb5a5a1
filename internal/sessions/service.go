package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facturador/facturador/backend/go-services/internal/models"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/google/uuid"
)

// ErrUnauthenticated is returned by Rotate when the presented refresh token
// cannot be exchanged: unknown, revoked, expired, orphaned, or already
// consumed by a concurrent rotation.
var ErrUnauthenticated = errors.New("sessions: refresh token rejected")

// OwnerLookup resolves the owner of a refresh token.
// It returns (nil, nil) when the owner no longer exists.
type OwnerLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Pair is a freshly issued credential pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// Service issues, verifies, rotates and revokes session credentials.
type Service struct {
	codec  *tokens.Codec
	repo   Repository
	owners OwnerLookup
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for refresh token lifetimes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(codec *tokens.Codec, repo Repository, owners OwnerLookup, opts ...Option) *Service {
	s := &Service{codec: codec, repo: repo, owners: owners, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) GenerateAccessToken(ownerID, email string) (string, error) {
	return s.codec.Issue(ownerID, email)
}

// VerifyAccessToken is stateless: it never touches the refresh store.
func (s *Service) VerifyAccessToken(token string) (tokens.Claims, error) {
	return s.codec.Verify(token)
}

// GenerateRefreshToken persists a new token for ownerID and returns the
// opaque secret to hand to the client.
func (s *Service) GenerateRefreshToken(ctx context.Context, ownerID string) (string, error) {
	const op = "sessions.GenerateRefreshToken"

	secret, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	now := s.now().UTC()
	t := &RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: HashToken(secret),
		OwnerID:   ownerID,
		IssuedAt:  now,
		ExpiresAt: now.Add(tokens.RefreshTokenTTL),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return secret, nil
}

// VerifyRefreshToken returns the owner of a usable token. It returns
// (nil, nil) when the token is unknown, revoked, expired, or its owner is
// gone; a non-nil error means the store failed.
func (s *Service) VerifyRefreshToken(ctx context.Context, secret string) (*models.User, error) {
	const op = "sessions.VerifyRefreshToken"

	if secret == "" {
		return nil, nil
	}
	t, err := s.repo.GetByHash(ctx, HashToken(secret))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t == nil || !t.Usable(s.now()) {
		return nil, nil
	}
	u, err := s.owners.GetByID(ctx, t.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// RevokeRefreshToken is idempotent: unknown and already revoked tokens are no-ops.
func (s *Service) RevokeRefreshToken(ctx context.Context, secret string) error {
	const op = "sessions.RevokeRefreshToken"

	if secret == "" {
		return nil
	}
	if _, err := s.repo.RevokeIfActive(ctx, HashToken(secret)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IssuePair issues a new refresh and access token for u without revoking
// anything; other devices keep their sessions.
func (s *Service) IssuePair(ctx context.Context, u *models.User) (*Pair, error) {
	const op = "sessions.IssuePair"

	refresh, err := s.GenerateRefreshToken(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	access, err := s.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Rotate exchanges a refresh token for a new pair. The old token is revoked
// before anything is issued; only the caller whose RevokeIfActive succeeds
// proceeds. If issuance fails afterwards the old token stays revoked.
func (s *Service) Rotate(ctx context.Context, secret string) (*Pair, error) {
	const op = "sessions.Rotate"

	u, err := s.VerifyRefreshToken(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	won, err := s.repo.RevokeIfActive(ctx, HashToken(secret))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !won {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	pair, err := s.IssuePair(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}
