package refresher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
)

// ErrUnauthenticated is returned when the server answers 401.
var ErrUnauthenticated = errors.New("refresher: session expired")

// HTTPSession talks to the session endpoints and keeps cookies in a jar.
type HTTPSession struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSession returns a client for baseURL. A nil client gets a fresh one;
// a client without a jar gets a cookiejar.
func NewHTTPSession(baseURL string, client *http.Client) (*HTTPSession, error) {
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client.Jar = jar
	}
	// redirects from the route gate are not followed
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &HTTPSession{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

// Login posts credentials; the session cookies land in the jar.
func (s *HTTPSession) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, "/api/auth/login", body)
}

func (s *HTTPSession) Session(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/api/auth/session", nil)
}

func (s *HTTPSession) Refresh(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/api/auth/refresh", nil)
}

func (s *HTTPSession) Logout(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/api/auth/logout", nil)
}

func (s *HTTPSession) do(ctx context.Context, method, path string, body []byte) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return nil
}
