package sessions

import (
	"net/http"
	"strings"
	"time"
)

// SetCookie writes the session cookie. It lives until expiresAt and is never
// readable from page script.
func SetCookie(w http.ResponseWriter, r *http.Request, name, value string, expiresAt, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   CookieMaxAge(expiresAt, now),
		Expires:  expiresAt,
	})
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// CookieMaxAge is the whole number of seconds left until expiresAt.
func CookieMaxAge(expiresAt, now time.Time) int {
	return int(expiresAt.Sub(now).Seconds())
}

// IsSecureRequest reports whether r reached us over TLS, directly or behind a proxy.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
