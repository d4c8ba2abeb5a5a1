package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AccessTokenTTL is the fixed validity window of an access token, measured from iat.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the fixed lifetime of a refresh token row.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// expMargin keeps the exp claim past the iat window; jwt rejects at exp itself.
	expMargin = time.Second
)

var (
	ErrMissingSecret    = errors.New("tokens: signing secret is not configured")
	ErrInvalidSignature = errors.New("tokens: invalid signature")
	ErrExpired          = errors.New("tokens: token expired")
)

// Claims is the verified identity carried by an access token.
type Claims struct {
	SubjectID string
	Email     string
	IssuedAt  time.Time
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 access tokens. It holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source used for iat and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Issue creates a signed access token for the subject.
func (c *Codec) Issue(subjectID, email string) (string, error) {
	now := c.now()
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL + expMargin)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(c.secret)
}

// Verify checks signature and expiry only. A token is expired once more than
// AccessTokenTTL has passed since iat. Malformed input is reported as
// ErrInvalidSignature.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalidSignature
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return Claims{}, ErrInvalidSignature
	}
	iat := claims.IssuedAt.Time
	if c.now().Sub(iat) > AccessTokenTTL {
		return Claims{}, ErrExpired
	}
	return Claims{SubjectID: claims.Subject, Email: claims.Email, IssuedAt: iat}, nil
}
