package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/facturador/facturador/backend/go-services/handlers"
	"github.com/facturador/facturador/backend/go-services/internal/apperr"
	"github.com/facturador/facturador/backend/go-services/internal/auth"
	"github.com/facturador/facturador/backend/go-services/internal/sessions"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/facturador/facturador/backend/go-services/internal/users"
	"github.com/facturador/facturador/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newLimitedAuthRouter mounts the auth routes with limiter in front of the
// credential endpoints, the way main wires it.
func newLimitedAuthRouter(t *testing.T, limiter gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uSvc := users.NewService(users.NewMemoryRepo(), users.WithHashCost(bcrypt.MinCost))
	_, err := uSvc.SeedDemo(context.Background(), users.RegisterInput{Email: "demo@empresa.com", Password: "Secret123!", Name: "Demo"})
	require.NoError(t, err)
	codec, err := tokens.NewCodec("limiter-test-secret")
	require.NoError(t, err)
	sSvc := sessions.NewService(codec, sessions.NewMemoryRepository(), uSvc)

	r := gin.New()
	h := handlers.NewAuthHandler(auth.NewEndpoints(uSvc, sSvc, auth.CookiePolicy{}))
	h.LimitCredentials(limiter)
	h.Register(r.Group("/api"))
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const wrongPassword = `{"email":"demo@empresa.com","password":"wrong-password"}`

func TestRedisRateLimit_LoginRoute(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	// two attempts per hour window, no refill
	r := newLimitedAuthRouter(t, middleware.RedisRateLimitMiddleware(client, 0, 2, time.Hour))

	require.Equal(t, http.StatusUnauthorized, post(r, "/api/auth/login", wrongPassword).Code)
	require.Equal(t, http.StatusUnauthorized, post(r, "/api/auth/login", wrongPassword).Code)

	w := post(r, "/api/auth/login", wrongPassword)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))

	var body apperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "too_many_requests", body.Error.Code)
	assert.Equal(t, "rate limit exceeded", body.Error.Message)

	// the counter is keyed by client IP and expires with its window
	keys := m.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "rl:ip:192.0.2.1:"), keys[0])
	assert.Equal(t, time.Hour+time.Second, m.TTL(keys[0]))

	// register shares the budget; refresh is not limited
	require.Equal(t, http.StatusTooManyRequests, post(r, "/api/auth/register", `{}`).Code)
	require.Equal(t, http.StatusUnauthorized, post(r, "/api/auth/refresh", "").Code)
}

func TestRedisRateLimit_RedisDownFailsClosed(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()
	r := newLimitedAuthRouter(t, middleware.RedisRateLimitMiddleware(client, 1, 5, time.Minute))
	m.Close()

	w := post(r, "/api/auth/login", wrongPassword)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body apperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal", body.Error.Code)
}

func TestRedisRateLimit_NilClientFallsBackToMemory(t *testing.T) {
	r := newLimitedAuthRouter(t, middleware.RedisRateLimitMiddleware(nil, 0.001, 1, time.Second))

	require.Equal(t, http.StatusUnauthorized, post(r, "/api/auth/login", wrongPassword).Code)
	w := post(r, "/api/auth/login", wrongPassword)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"too_many_requests"`)
}
