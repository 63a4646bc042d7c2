package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ivyedsg/repify-web/apiclient"
	"github.com/ivyedsg/repify-web/auth"
	"github.com/ivyedsg/repify-web/internal/config"
	"github.com/ivyedsg/repify-web/server"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/ivyedsg/repify-web/sessions/memstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.login(t, "wrong", "/dashboard/projects")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t,
		"/login?callbackUrl=%2Fdashboard%2Fprojects&email=ana%40uni.edu&error=Invalid+email+or+password",
		rec.Header().Get("Location"))
	require.Nil(t, env.cookie)
}

func TestLogin_MalformedEmailNeverReachesAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, strings.NewReader("email=not-an-email&password=s3cret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=Invalid+email+or+password")
	require.Nil(t, env.cookie)
}

func TestLogin_CallbackURL(t *testing.T) {
	tests := []struct {
		name     string
		callback string
		want     string
	}{
		{name: "protected path", callback: "/dashboard/projects/7", want: "/dashboard/projects/7"},
		{name: "off-site", callback: "https://evil.example/dashboard", want: "/dashboard"},
		{name: "protocol relative", callback: "//evil.example", want: "/dashboard"},
		{name: "outside protected area", callback: "/login", want: "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.login(t, "s3cret", tt.callback)
			require.Equal(t, http.StatusSeeOther, rec.Code)
			require.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestLogin_JSON(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin,
		strings.NewReader(`{"email":"ana@uni.edu","password":"s3cret","callbackUrl":"/dashboard/projects"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"url":"/dashboard/projects"}`, rec.Body.String())
	require.NotNil(t, env.cookie)

	env.cookie = nil
	req = httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, strings.NewReader(`{"email":"ana@uni.edu","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Invalid email or password"}`, rec.Body.String())
	require.Nil(t, env.cookie)

	req = httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_HTMX(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin, strings.NewReader("email=ana%40uni.edu&password=s3cret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := env.do(t, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t, map[string]string{"APP_NAME": "Repify Test"})

	rec := env.get(t, "/login?error=Invalid+email+or+password&email=ana%40uni.edu&callbackUrl=%2Fdashboard%2Fprojects")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	body := rec.Body.String()
	require.Contains(t, body, "Repify Test")
	require.Contains(t, body, "Invalid email or password")
	require.Contains(t, body, `value="ana@uni.edu"`)
	require.Contains(t, body, `value="/dashboard/projects"`)

	rec = env.get(t, "/login?callbackUrl=https%3A%2F%2Fevil.example")
	require.Contains(t, rec.Body.String(), `value="/dashboard"`)
	require.NotContains(t, rec.Body.String(), "evil.example")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "s3cret", "")
	require.NotNil(t, env.cookie)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, server.RouteAuthLogout, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteLogin, rec.Header().Get("Location"))
	require.Nil(t, env.cookie)
}

func TestLogout_RejectsGet(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t, "s3cret", "")
	cookie := env.cookie

	rec := env.get(t, server.RouteAuthLogout)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, cookie, env.cookie)
}

func TestSessionEndpoint(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.get(t, server.RouteAPISession)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{}`, rec.Body.String())
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("projection", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.login(t, "s3cret", "")

		rec := env.get(t, server.RouteAPISession)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{
			"id": "42",
			"email": "ana@uni.edu",
			"university": "UNI",
			"career": "Systems Engineering",
			"access_token": "access-1",
			"refresh_token": "refresh-1"
		}`, rec.Body.String())

		_, probeCalls := env.api.counts()
		require.Equal(t, 0, probeCalls, "reading the session never probes")
	})

	t.Run("refresh is persisted", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.login(t, "s3cret", "")

		env.clock.Set(t0.Add(11 * time.Minute))
		rec := env.get(t, server.RouteAPISession)
		var got sessions.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, "access-2", got.AccessToken)
		require.Equal(t, t0.Add(21*time.Minute), env.token(t).AccessTokenExpiresAt)

		env.get(t, server.RouteAPISession)
		refreshCalls, _ := env.api.counts()
		require.Equal(t, 1, refreshCalls)
	})

	t.Run("error is observable", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.login(t, "s3cret", "")
		env.api.set(func(f *fakeAPI) { f.refreshStatus = http.StatusBadGateway })

		env.clock.Set(t0.Add(11 * time.Minute))
		rec := env.get(t, server.RouteAPISession)
		var got sessions.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, sessions.RefreshAccessTokenError, got.Error)
		require.Equal(t, "access-1", got.AccessToken)
	})

	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.login(t, "s3cret", "")

		env.clock.Set(t0.Add(25 * time.Hour))
		rec := env.get(t, server.RouteAPISession)
		var got sessions.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, sessions.RefreshTokenExpired, got.Error)
		require.Nil(t, env.cookie, "cookie past the ceiling is dropped")
	})
}

func TestSessionEndpoint_CORS(t *testing.T) {
	env := newTestEnv(t, map[string]string{"ALLOWED_ORIGINS": "https://app.repify.example"})

	req := httptest.NewRequest(http.MethodOptions, server.RouteAPISession, nil)
	req.Header.Set("Origin", "https://app.repify.example")
	rec := env.do(t, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.repify.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, server.RouteAPISession, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(t, "/")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteLogin, rec.Header().Get("Location"))

	env.login(t, "s3cret", "")
	rec = env.get(t, "/")
	require.Equal(t, server.RouteDashboard, rec.Header().Get("Location"))

	env.clock.Set(t0.Add(25 * time.Hour))
	rec = env.get(t, "/")
	require.Equal(t, server.RouteLogin, rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(t, server.RouteHealth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	env := newTestEnv(t, map[string]string{"ENV": "PROD", "SESSION_SECRET": "0123456789abcdef0123456789abcdef"})

	rec := env.get(t, server.RouteLogin)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, server.RouteLogin, nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec = env.do(t, req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware_ContextLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	env := newTestEnv(t, nil)
	handler := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
	}, env.srv.LoggingMiddleware)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-456")
	handler(httptest.NewRecorder(), req)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "inside handler") {
			line = l
		}
	}
	require.Contains(t, line, `"request_id":"req-456"`)
}

func TestRecoverMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	handler := server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, env.srv.RecoverMiddleware)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.example.test")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	_, err = server.New(cfg, server.Dependencies{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "authorizer is required")
}

func TestNew_RepeatedProtectedPrefix(t *testing.T) {
	env := newTestEnv(t, map[string]string{"PROTECTED_PREFIXES": "/dashboard,/dashboard/"})

	rec := env.get(t, "/dashboard")
	requireLoginRedirect(t, rec, "/dashboard")
}

// newMemoryEnv builds a server whose sessions live in an in-process repo.
func newMemoryEnv(t *testing.T) (*testEnv, *memstore.InMemoryRepo) {
	t.Helper()
	api := &fakeAPI{}
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)
	t.Setenv("API_BASE_URL", apiServer.URL)
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	client := apiclient.New(cfg.GetAPIBaseURL(), time.Second)
	repo := memstore.NewInMemoryRepo()
	carrier := memstore.New(repo, cfg.GetCookieName())
	c := &clock{now: t0}
	srv, err := server.New(cfg, server.Dependencies{
		Authorizer:  auth.NewCredentialExchange(client),
		Store:       sessions.NewStore(client, sessions.DefaultLifetimes()),
		Carrier:     carrier,
		Invalidator: carrier,
		Prober:      client,
	}, server.WithNowFunc(c.Now))
	require.NoError(t, err)
	return &testEnv{srv: srv, api: api, clock: c}, repo
}

func TestServer_MemoryCarrier(t *testing.T) {
	env, repo := newMemoryEnv(t)

	env.login(t, "s3cret", "")
	require.NotNil(t, env.cookie)
	require.Equal(t, 1, repo.Len())

	env.clock.Set(t0.Add(11 * time.Minute))
	rec := env.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	refreshCalls, _ := env.api.counts()
	require.Equal(t, 1, refreshCalls)

	env.api.set(func(f *fakeAPI) { f.probeStatus = http.StatusUnauthorized })
	rec = env.get(t, "/dashboard")
	requireLoginRedirect(t, rec, "/dashboard")
	require.Nil(t, env.cookie)
	require.Zero(t, repo.Len())
}

func TestServer_AbandonedRequestKeepsSession(t *testing.T) {
	abandoned := func(path string) *http.Request {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	}

	t.Run("valid access token", func(t *testing.T) {
		env, repo := newMemoryEnv(t)
		env.login(t, "s3cret", "")
		id := env.cookie.Value

		env.clock.Set(t0.Add(time.Minute))
		rec := env.do(t, abandoned("/dashboard"))
		require.Empty(t, rec.Result().Cookies())
		require.Equal(t, 1, repo.Len())

		rec = env.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, id, env.cookie.Value)
	})

	t.Run("stale access token", func(t *testing.T) {
		env, repo := newMemoryEnv(t)
		env.login(t, "s3cret", "")
		id := env.cookie.Value

		env.clock.Set(t0.Add(11 * time.Minute))
		for _, path := range []string{"/dashboard", server.RouteAPISession} {
			rec := env.do(t, abandoned(path))
			require.Empty(t, rec.Result().Cookies(), path)

			entry, err := repo.Get(id)
			require.NoError(t, err)
			require.Equal(t, sessions.ErrorNone, entry.Token.Error, path)
			require.Equal(t, "access-1", entry.Token.AccessToken, path)
		}

		rec := env.get(t, "/dashboard")
		require.Equal(t, http.StatusOK, rec.Code)
		entry, err := repo.Get(id)
		require.NoError(t, err)
		require.Equal(t, "access-2", entry.Token.AccessToken)
	})
}
