package httputil

import (
	"net/http"
	"time"
)

// RememberCookieName is the cookie holding the remember-me token.
const RememberCookieName = "remember_customer"

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool // Set to true in production (HTTPS)
	SameSite http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookie sets an HttpOnly cookie. A zero ttl makes it a browser session cookie.
func SetCookie(w http.ResponseWriter, name, value string, ttl time.Duration, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearCookie expires a cookie set by SetCookie.
func ClearCookie(w http.ResponseWriter, name string, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// SetRememberCookie stores the remember-me token.
func SetRememberCookie(w http.ResponseWriter, token string, ttl time.Duration, cfg CookieConfig) {
	SetCookie(w, RememberCookieName, token, ttl, cfg)
}

// ClearRememberCookie clears the remember-me token.
func ClearRememberCookie(w http.ResponseWriter, cfg CookieConfig) {
	ClearCookie(w, RememberCookieName, cfg)
}

// GetCookie extracts a cookie value.
func GetCookie(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// GetRememberToken extracts the remember-me token from its cookie.
func GetRememberToken(r *http.Request) (string, bool) {
	return GetCookie(r, RememberCookieName)
}
