package sessions_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ivyedsg/repify-web/sessions"
	"github.com/stretchr/testify/require"
)

func TestSetCookie(t *testing.T) {
	expiresAt := t0.Add(24 * time.Hour)

	rec := httptest.NewRecorder()
	sessions.SetCookie(rec, httptest.NewRequest(http.MethodGet, "/", nil), "sid", "v1", expiresAt, t0.Add(time.Hour))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "sid", c.Name)
	require.Equal(t, "v1", c.Value)
	require.Equal(t, "/", c.Path)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, int((23 * time.Hour).Seconds()), c.MaxAge)
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	sessions.ClearCookie(rec, httptest.NewRequest(http.MethodGet, "/", nil), "sid")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sid", cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}

func TestIsSecureRequest(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	require.False(t, sessions.IsSecureRequest(plain))

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	require.True(t, sessions.IsSecureRequest(proxied))

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	require.True(t, sessions.IsSecureRequest(direct))
}
