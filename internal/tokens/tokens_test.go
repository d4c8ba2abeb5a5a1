package tokens

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCodec(t *testing.T, secret string, clk *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec(secret, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return c
}

func TestNewCodec_MissingSecret(t *testing.T) {
	if _, err := NewCodec(""); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "test-secret-32-bytes-should-be-long-enough", clk)

	tokenStr, err := c.Issue("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	got, err := c.Verify(tokenStr)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got.SubjectID != "user-123" || got.Email != "test@example.com" {
		t.Fatalf("unexpected claims: %+v", got)
	}
	if !got.IssuedAt.Equal(clk.t) {
		t.Fatalf("unexpected iat: %v", got.IssuedAt)
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: issued}
	c := newTestCodec(t, "boundary-secret-32-bytes-xxxxxxxxxx", clk)

	tokenStr, err := c.Issue("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clk.t = issued.Add(AccessTokenTTL - time.Second)
	if _, err := c.Verify(tokenStr); err != nil {
		t.Fatalf("expected token to be valid one second before expiry, got %v", err)
	}

	clk.t = issued.Add(AccessTokenTTL)
	if _, err := c.Verify(tokenStr); err != nil {
		t.Fatalf("expected token to be valid at exactly the window end, got %v", err)
	}

	clk.t = issued.Add(AccessTokenTTL + time.Millisecond)
	if _, err := c.Verify(tokenStr); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired just past the window, got %v", err)
	}

	clk.t = issued.Add(AccessTokenTTL + time.Second)
	if _, err := c.Verify(tokenStr); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after the window, got %v", err)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	issuer := newTestCodec(t, "secret-one-32-bytes-xxxxxxxxxxxxxxxx", clk)
	verifier := newTestCodec(t, "different-secret-xxxxxxxxxxxxxxxx", clk)

	tokenStr, err := issuer.Issue("u3", "bob@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := verifier.Verify(tokenStr); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := newTestCodec(t, "x-secret", &fakeClock{t: time.Now()})
	for _, raw := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := c.Verify(raw); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature for %q, got %v", raw, err)
		}
	}
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	c := newTestCodec(t, "x-secret", &fakeClock{t: time.Now()})
	payload := `{"sub":"u-none","email":"n@e.com","iat":1,"exp":9999999999}`
	tok := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`)) + "." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + "."
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected alg=none to be rejected, got %v", err)
	}
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	c := newTestCodec(t, "tamper-test-secret-32-bytes-xxxxxxx", &fakeClock{t: time.Now()})
	tokenStr, err := c.Issue("user-t", "t@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := base64.RawURLEncoding.DecodeString(parts[1])
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))
	if _, err := c.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected signature verification to fail for tampered token, got %v", err)
	}
}

func TestVerify_MissingSubjectRejected(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, "subject-secret", clk)
	claims := jwt.MapClaims{"email": "a@b.c", "iat": clk.t.Unix(), "exp": clk.t.Add(time.Minute).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("subject-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(tok); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected token without sub to be rejected, got %v", err)
	}
}
