package auth

import (
	"net/http"

	"github.com/facturador/facturador/backend/go-services/internal/tokens"
)

const (
	AccessCookie  = "access-token"
	RefreshCookie = "refresh-token"
	// LegacyCookie is the single-cookie scheme older clients may still hold.
	LegacyCookie = "auth-token"
)

// CookiePolicy builds session cookies with fixed attributes.
type CookiePolicy struct {
	Secure bool
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p CookiePolicy) Access(token string) *http.Cookie {
	return p.cookie(AccessCookie, token, int(tokens.AccessTokenTTL.Seconds()))
}

func (p CookiePolicy) Refresh(token string) *http.Cookie {
	return p.cookie(RefreshCookie, token, int(tokens.RefreshTokenTTL.Seconds()))
}

// Clear returns a deletion cookie for name.
func (p CookiePolicy) Clear(name string) *http.Cookie {
	return p.cookie(name, "", -1)
}

// Issue returns the cookies set after a successful login, register or refresh.
func (p CookiePolicy) Issue(access, refresh string) []*http.Cookie {
	return []*http.Cookie{p.Access(access), p.Refresh(refresh), p.Clear(LegacyCookie)}
}

// ClearSession deletes the access and refresh cookies.
func (p CookiePolicy) ClearSession() []*http.Cookie {
	return []*http.Cookie{p.Clear(AccessCookie), p.Clear(RefreshCookie)}
}

// ClearAll deletes every session cookie including the legacy one.
func (p CookiePolicy) ClearAll() []*http.Cookie {
	return append(p.ClearSession(), p.Clear(LegacyCookie))
}
