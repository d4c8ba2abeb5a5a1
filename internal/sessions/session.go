package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// State is the lifecycle position of a refresh token.
type State int

const (
	StateActive State = iota
	StateRevoked
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRevoked:
		return "revoked"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// RefreshToken is the persisted record behind a refresh cookie. The cookie
// carries an opaque secret; only its hash is stored.
type RefreshToken struct {
	ID        string    `bson:"_id" json:"id"`
	TokenHash string    `bson:"tokenHash" json:"tokenHash"`
	OwnerID   string    `bson:"ownerId" json:"ownerId"`
	IssuedAt  time.Time `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	Revoked   bool      `bson:"revoked" json:"revoked"`
}

// State derives the lifecycle state at now. Revocation wins over expiry.
func (t *RefreshToken) State(now time.Time) State {
	if t.Revoked {
		return StateRevoked
	}
	if !now.Before(t.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// Usable reports whether the token may still be exchanged.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.State(now) == StateActive
}

// HashToken returns the storage key for a refresh secret.
func HashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
