package middleware

import (
	"strings"

	"github.com/facturador/facturador/backend/go-services/internal/apperr"
	"github.com/facturador/facturador/backend/go-services/internal/auth"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AccessVerifier is the minimal interface the middleware depends on.
// Implementations must not consult the refresh token store.
type AccessVerifier interface {
	VerifyAccessToken(token string) (tokens.Claims, error)
}

// IdentityFrom returns the identity stored by RequireAccess.
func IdentityFrom(c *gin.Context) (tokens.Claims, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return tokens.Claims{}, false
	}
	id, ok := v.(tokens.Claims)
	return id, ok
}

// accessToken prefers the access-token cookie and falls back to a Bearer header.
func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(auth.AccessCookie); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAccess rejects requests without a valid access token with 401 and
// otherwise exposes the caller via IdentityFrom.
func RequireAccess(v AccessVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := accessToken(c)
		if raw == "" {
			status, body := apperr.ToHTTP(apperr.Unauthenticated("missing access token"))
			c.AbortWithStatusJSON(status, body)
			return
		}
		claims, err := v.VerifyAccessToken(raw)
		if err != nil {
			status, body := apperr.ToHTTP(apperr.Unauthenticated("invalid access token"))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Set(identityKey, claims)
		c.Next()
	}
}

// rateLimitKey prefers the verified subject (NAT-friendly) over the client IP.
func rateLimitKey(c *gin.Context) string {
	if id, ok := IdentityFrom(c); ok && id.SubjectID != "" {
		return "sub:" + id.SubjectID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func tooManyRequests(c *gin.Context) {
	status, body := apperr.ToHTTP(apperr.New(apperr.KindTooManyRequests, "rate limit exceeded"))
	c.AbortWithStatusJSON(status, body)
}
