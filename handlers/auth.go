package handlers

import (
	"context"
	"net/http"

	"github.com/facturador/facturador/backend/go-services/internal/auth"
	"github.com/facturador/facturador/backend/go-services/internal/models"
	"github.com/facturador/facturador/backend/go-services/pkg/logger"
	"github.com/facturador/facturador/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler adapts auth.Endpoints to gin.
type AuthHandler struct {
	endpoints *auth.Endpoints
	limiter   gin.HandlerFunc
}

func NewAuthHandler(e *auth.Endpoints) *AuthHandler {
	return &AuthHandler{endpoints: e}
}

// LimitCredentials puts mw in front of the login and register routes.
func (h *AuthHandler) LimitCredentials(mw gin.HandlerFunc) {
	h.limiter = mw
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	credentials := []gin.HandlerFunc{}
	if h.limiter != nil {
		credentials = append(credentials, h.limiter)
	}
	a.POST("/login", append(credentials, h.serve(h.endpoints.Login))...)
	a.POST("/register", append(credentials, h.serve(h.endpoints.Register))...)
	a.POST("/refresh", h.serve(h.endpoints.Refresh))
	a.POST("/logout", h.serve(h.endpoints.Logout))
	a.GET("/session", h.serve(h.endpoints.Session))
}

type endpointFunc func(ctx context.Context, req auth.Request) auth.Response

func (h *AuthHandler) serve(fn endpointFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := auth.Request{Cookies: map[string]string{}}
		for _, ck := range c.Request.Cookies() {
			req.Cookies[ck.Name] = ck.Value
		}
		if c.Request.Body != nil && c.Request.Method != http.MethodGet {
			body, err := c.GetRawData()
			if err != nil {
				logger.Warnf("%s: read body: %v", c.FullPath(), err)
			}
			req.Body = body
		}

		resp := fn(c.Request.Context(), req)
		for _, ck := range resp.Cookies {
			http.SetCookie(c.Writer, ck)
		}
		c.JSON(resp.Status, resp.Body)
	}
}

// UserLookup resolves the caller of /api/v1/me.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Me returns the stored profile of the verified caller, falling back to the
// token identity when the user store has no record.
func Me(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		u, err := users.GetByID(c.Request.Context(), id.SubjectID)
		if err != nil {
			logger.Errorf("me: user lookup failed: %v", err)
		}
		if u != nil {
			c.JSON(http.StatusOK, gin.H{"user": u})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": id.SubjectID, "email": id.Email}})
	}
}
