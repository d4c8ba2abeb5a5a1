// Package auth implements the session endpoints independent of the HTTP
// framework: each call takes the inbound cookies and body and returns the
// status, payload and cookies to write.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/facturador/facturador/backend/go-services/internal/apperr"
	"github.com/facturador/facturador/backend/go-services/internal/models"
	"github.com/facturador/facturador/backend/go-services/internal/sessions"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/facturador/facturador/backend/go-services/internal/users"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
	"github.com/facturador/facturador/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin/binding"
)

// UserService is the credential store collaborator.
type UserService interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, in users.RegisterInput) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenService issues and checks session credentials.
type TokenService interface {
	IssuePair(ctx context.Context, u *models.User) (*sessions.Pair, error)
	Rotate(ctx context.Context, refresh string) (*sessions.Pair, error)
	RevokeRefreshToken(ctx context.Context, refresh string) error
	VerifyAccessToken(token string) (tokens.Claims, error)
}

// Request is the transport-neutral view of an inbound call.
type Request struct {
	Cookies map[string]string
	Body    []byte
}

// Response is what the transport must write back.
type Response struct {
	Status  int
	Body    any
	Cookies []*http.Cookie
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
}

type LoginResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type RegisterResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type SessionResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Endpoints holds dependencies
type Endpoints struct {
	users   UserService
	tokens  TokenService
	cookies CookiePolicy
}

func NewEndpoints(u UserService, t TokenService, cookies CookiePolicy) *Endpoints {
	return &Endpoints{users: u, tokens: t, cookies: cookies}
}

// Login checks credentials and issues a new pair. Sessions on other devices
// are left alone.
func (e *Endpoints) Login(ctx context.Context, req Request) Response {
	var in LoginRequest
	if len(req.Body) > 0 {
		if err := binding.JSON.BindBody(req.Body, &in); err != nil {
			return e.fail("login", apperr.Validation("invalid request body"))
		}
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return e.fail("login", apperr.Validation("email and password are required"))
	}

	u, err := e.users.Authenticate(ctx, in.Email, in.Password)
	switch {
	case errors.Is(err, users.ErrMissingCredentials):
		return e.fail("login", apperr.Validation("email and password are required"))
	case errors.Is(err, users.ErrUserNotFound):
		return e.fail("login", apperr.NotFound("user not found"))
	case errors.Is(err, users.ErrInvalidPassword):
		return e.fail("login", apperr.Unauthenticated("invalid credentials"))
	case err != nil:
		return e.fail("login", apperr.Internal(err))
	}

	pair, err := e.tokens.IssuePair(ctx, u)
	if err != nil {
		return e.fail("login", apperr.Internal(err))
	}
	logger.Infof("login: user=%s", u.ID)
	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	return Response{
		Status:  http.StatusOK,
		Body:    LoginResponse{User: u, AccessToken: pair.AccessToken},
		Cookies: e.cookies.Issue(pair.AccessToken, pair.RefreshToken),
	}
}

// Register creates the account and logs it in.
func (e *Endpoints) Register(ctx context.Context, req Request) Response {
	var in RegisterRequest
	if len(req.Body) > 0 {
		if err := binding.JSON.BindBody(req.Body, &in); err != nil {
			return e.fail("register", apperr.Validation("invalid request body"))
		}
	}

	u, err := e.users.Register(ctx, users.RegisterInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		TenantID: in.TenantID,
	})
	switch {
	case errors.Is(err, users.ErrInvalidEmail):
		return e.fail("register", apperr.Validation("invalid email"))
	case errors.Is(err, users.ErrPasswordTooShort):
		return e.fail("register", apperr.Validation("password must be at least 8 characters"))
	case errors.Is(err, users.ErrEmailTaken):
		return e.fail("register", apperr.Conflict("email already registered"))
	case err != nil:
		return e.fail("register", apperr.Internal(err))
	}

	pair, err := e.tokens.IssuePair(ctx, u)
	if err != nil {
		return e.fail("register", apperr.Internal(err))
	}
	logger.Infof("register: user=%s", u.ID)
	metrics.AuthEvents.WithLabelValues("register", "ok").Inc()
	return Response{
		Status:  http.StatusCreated,
		Body:    RegisterResponse{User: u, Token: pair.AccessToken},
		Cookies: e.cookies.Issue(pair.AccessToken, pair.RefreshToken),
	}
}

// Refresh rotates the refresh cookie. On failure no cookies are written; the
// client decides where to go next.
func (e *Endpoints) Refresh(ctx context.Context, req Request) Response {
	old := req.Cookies[RefreshCookie]
	if old == "" {
		return e.fail("refresh", apperr.Unauthenticated("missing refresh token"))
	}
	logger.Debugf("refresh: rotating %s", logger.Redact(old))

	pair, err := e.tokens.Rotate(ctx, old)
	if err != nil {
		if errors.Is(err, sessions.ErrUnauthenticated) {
			return e.fail("refresh", apperr.Unauthenticated("invalid refresh token"))
		}
		// the old token may already be revoked; the caller has to log in again
		logger.Errorf("refresh: rotation failed: %v", err)
		return e.fail("refresh", apperr.Wrap(apperr.KindUnauthenticated, "session could not be renewed", err))
	}
	metrics.AuthEvents.WithLabelValues("refresh", "ok").Inc()
	return Response{
		Status:  http.StatusOK,
		Body:    LoginResponse{User: pair.User, AccessToken: pair.AccessToken},
		Cookies: e.cookies.Issue(pair.AccessToken, pair.RefreshToken),
	}
}

// Logout always succeeds and always clears every session cookie.
func (e *Endpoints) Logout(ctx context.Context, req Request) Response {
	if refresh := req.Cookies[RefreshCookie]; refresh != "" {
		if err := e.tokens.RevokeRefreshToken(ctx, refresh); err != nil {
			logger.Warnf("logout: revoke failed: %v", err)
			metrics.AuthEvents.WithLabelValues("logout", "revoke_error").Inc()
		}
	}
	metrics.AuthEvents.WithLabelValues("logout", "ok").Inc()
	return Response{
		Status:  http.StatusOK,
		Body:    MessageResponse{Message: "logged out"},
		Cookies: e.cookies.ClearAll(),
	}
}

// Session reads the identity from the access cookie alone.
func (e *Endpoints) Session(ctx context.Context, req Request) Response {
	raw := req.Cookies[AccessCookie]
	if raw == "" {
		return e.fail("session", apperr.Unauthenticated("missing access token"))
	}
	claims, err := e.tokens.VerifyAccessToken(raw)
	if err != nil {
		return e.fail("session", apperr.Unauthenticated("invalid access token"))
	}

	out := SessionResponse{ID: claims.SubjectID, Email: claims.Email}
	u, err := e.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		logger.Warnf("session: user lookup failed for %s: %v", claims.SubjectID, err)
	} else if u != nil {
		out.Name = u.Name
	}
	metrics.AuthEvents.WithLabelValues("session", "ok").Inc()
	return Response{Status: http.StatusOK, Body: out}
}

func (e *Endpoints) fail(event string, err *apperr.Error) Response {
	status, body := apperr.ToHTTP(err)
	if err.Kind == apperr.KindInternal {
		logger.Errorf("%s: %v", event, err)
	}
	metrics.AuthEvents.WithLabelValues(event, apperr.Code(err.Kind)).Inc()
	return Response{Status: status, Body: body}
}
