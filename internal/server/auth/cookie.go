package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CookiePolicy describes how the access token cookie is issued and cleared.
type CookiePolicy struct {
	Name     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// ParseSameSite maps "lax", "strict" and "none" to http.SameSite.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return http.SameSiteDefaultMode, fmt.Errorf("unsupported samesite %q", s)
	}
}

// Set returns a cookie carrying the access token for MaxAge.
func (p CookiePolicy) Set(accessToken string) *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: p.SameSite,
	}
}

// Clear returns a cookie that makes the client drop the access token.
func (p CookiePolicy) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: p.SameSite,
	}
}
