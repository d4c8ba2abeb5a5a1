package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/facturador/facturador/backend/go-services/internal/auth"
	"github.com/facturador/facturador/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Classification is the route class of a request path.
type Classification int

const (
	Unclassified Classification = iota
	Public
	Protected
)

func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case Protected:
		return "protected"
	}
	return "unclassified"
}

// DefaultPassThrough lists static and internal prefixes the gate never inspects.
var DefaultPassThrough = []string{
	"/_next/", "/static/", "/assets/", "/favicon.ico",
	"/api/", "/health", "/ready", "/metrics", "/swagger/",
}

// RouteConfig holds the prefix lists used for classification.
type RouteConfig struct {
	Public      []string
	Protected   []string
	PassThrough []string
	Landing     string
	Login       string
}

// Classify maps path to exactly one class. The longest matching prefix
// across both lists wins; a prefix matches whole path segments only.
func (rc RouteConfig) Classify(path string) Classification {
	best, class := -1, Unclassified
	for _, p := range rc.Public {
		if matchPrefix(path, p) && len(p) > best {
			best, class = len(p), Public
		}
	}
	for _, p := range rc.Protected {
		if matchPrefix(path, p) && len(p) > best {
			best, class = len(p), Protected
		}
	}
	return class
}

func (rc RouteConfig) passThrough(path string) bool {
	list := rc.PassThrough
	if list == nil {
		list = DefaultPassThrough
	}
	for _, p := range list {
		// directory and file entries match raw; bare names match whole segments
		if strings.HasSuffix(p, "/") || strings.Contains(p, ".") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

func matchPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// RouteGate redirects before any handler runs, based only on a signature and
// expiry check of the access-token cookie. It never answers 401.
func RouteGate(v AccessVerifier, rc RouteConfig, cookies auth.CookiePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if rc.passThrough(path) {
			c.Next()
			return
		}

		valid := false
		if raw, err := c.Cookie(auth.AccessCookie); err == nil && raw != "" {
			_, verr := v.VerifyAccessToken(raw)
			valid = verr == nil
		}

		if path == "/" {
			if valid {
				redirect(c, rc.Landing, "landing")
				return
			}
			decide(c, "pass")
			return
		}

		switch rc.Classify(path) {
		case Public:
			if valid {
				redirect(c, rc.Landing, "landing")
				return
			}
		case Protected:
			if !valid {
				for _, ck := range cookies.ClearSession() {
					http.SetCookie(c.Writer, ck)
				}
				redirect(c, rc.Login+"?redirect="+url.QueryEscape(path), "login")
				return
			}
		}
		decide(c, "pass")
	}
}

func redirect(c *gin.Context, location, decision string) {
	metrics.RouteGateDecisions.WithLabelValues("redirect_" + decision).Inc()
	c.Redirect(http.StatusTemporaryRedirect, location)
	c.Abort()
}

func decide(c *gin.Context, decision string) {
	metrics.RouteGateDecisions.WithLabelValues(decision).Inc()
	c.Next()
}
