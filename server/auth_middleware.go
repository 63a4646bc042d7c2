package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ivyedsg/repify-web/apiclient"
	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the session projection of an allowed request
	ContextKeySession ContextKey = "session"
	// ContextKeyAPI stores the API handle bound to the session's access token
	ContextKeyAPI ContextKey = "api"
)

// GateOutcome is the state the route gate settles in for a request.
type GateOutcome string

const (
	Allow        GateOutcome = "ALLOW"
	DenyRedirect GateOutcome = "DENY_REDIRECT"
)

// Decision is the result of running the gate over one request.
// Reason is nil when the request is allowed.
type Decision struct {
	Outcome    GateOutcome
	Reason     error
	Token      *sessions.Token
	Transition sessions.Outcome
	Now        time.Time
}

// Changed reports whether the token must be persisted.
func (d Decision) Changed() bool {
	return d.Transition.Changed()
}

// Allowed reports whether the request may reach the protected handler.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Gate decides whether a request to a protected path is let through.
type Gate struct {
	store       *sessions.Store
	carrier     SessionCarrier
	invalidator Invalidator
	prober      Prober
	probePath   string
	nowFunc     func() time.Time
}

type GateOption func(*Gate)

// WithProbePath probes a fixed API path instead of replaying the request path.
func WithProbePath(path string) GateOption {
	return func(g *Gate) {
		g.probePath = path
	}
}

// WithGateNowFunc sets the gate clock (primarily for testing)
func WithGateNowFunc(nowFunc func() time.Time) GateOption {
	return func(g *Gate) {
		g.nowFunc = nowFunc
	}
}

func NewGate(store *sessions.Store, carrier SessionCarrier, invalidator Invalidator, prober Prober, options ...GateOption) *Gate {
	g := &Gate{
		store:       store,
		carrier:     carrier,
		invalidator: invalidator,
		prober:      prober,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Decide runs the session transition for r and probes the remote API with the
// resulting access token. It performs no writes to the response; the caller
// applies the decision. A cancelled ctx is reported as the reason and is never
// mistaken for an upstream rejection.
func (g *Gate) Decide(ctx context.Context, r *http.Request) Decision {
	now := g.nowFunc()

	prev, err := g.carrier.Load(r, now)
	if err != nil {
		return Decision{Outcome: DenyRedirect, Reason: err, Now: now}
	}

	tok, outcome := g.store.Next(ctx, prev, nil, now)
	d := Decision{Token: tok, Transition: outcome, Now: now}
	if err := ctx.Err(); err != nil {
		d.Outcome, d.Reason = DenyRedirect, err
		return d
	}

	if tok.Error == sessions.RefreshTokenExpired {
		d.Outcome, d.Reason = DenyRedirect, apperrors.ErrRefreshTokenExpired
		return d
	}

	method, path := g.probeTarget(r)
	status, err := g.prober.Probe(ctx, method, path, tok.AccessToken)
	if ctxErr := ctx.Err(); ctxErr != nil {
		d.Outcome, d.Reason = DenyRedirect, ctxErr
		return d
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Session probe failed")
		d.Outcome, d.Reason = DenyRedirect, fmt.Errorf("%w: probe failed: %w", apperrors.ErrUpstreamUnauthorized, err)
		return d
	}
	if status == http.StatusUnauthorized {
		statusErr := &apperrors.StatusError{Method: method, Path: path, StatusCode: status}
		d.Outcome, d.Reason = DenyRedirect, fmt.Errorf("%w: %w", apperrors.ErrUpstreamUnauthorized, statusErr)
		return d
	}

	if tok.Error == sessions.RefreshAccessTokenError {
		d.Outcome, d.Reason = DenyRedirect, apperrors.ErrRefreshAccessToken
		return d
	}

	d.Outcome = Allow
	return d
}

func (g *Gate) probeTarget(r *http.Request) (string, string) {
	method := http.MethodGet
	if r.Method == http.MethodHead {
		method = http.MethodHead
	}
	if g.probePath != "" {
		return method, g.probePath
	}
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return method, path
}

// RequireSession is middleware for protected routes. Allowed requests continue
// with the session projection in their context; everything else is redirected
// to the login page. A request the client abandoned leaves the session as it was.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())
			d := s.gate.Decide(r.Context(), r)
			if err := r.Context().Err(); err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Request abandoned before the route gate settled")
				return
			}

			switch {
			case apperrors.Is(d.Reason, apperrors.ErrUpstreamUnauthorized):
				s.deps.Invalidator.Invalidate(w, r, d.Reason)
			case apperrors.Is(d.Reason, apperrors.ErrRefreshTokenExpired),
				apperrors.Is(d.Reason, apperrors.ErrInvalidSession):
				s.deps.Carrier.Clear(w, r)
			case d.Changed():
				if err := s.deps.Carrier.Save(w, r, d.Token, d.Now); err != nil {
					logger.Err(err).Msg("Failed to persist session")
				}
			}

			if !d.Allowed() {
				logger.Debug().Str("path", r.URL.Path).Stringer("transition", d.Transition).
					AnErr("reason", d.Reason).Msg("Route gate denied request")
				redirectSuccess(w, r, loginRedirectURL(r))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sessions.Project(d.Token))
			if s.deps.API != nil {
				ctx = context.WithValue(ctx, ContextKeyAPI, s.deps.API.WithToken(d.Token.AccessToken))
			}
			next(w, r.WithContext(ctx))
		}
	}
}

// loginRedirectURL sends the user to the login page and back to r afterwards.
func loginRedirectURL(r *http.Request) string {
	callback := r.URL.Path
	if r.URL.RawQuery != "" {
		callback += "?" + r.URL.RawQuery
	}
	return RouteLogin + "?" + paramCallbackURL + "=" + url.QueryEscape(callback)
}

// SessionFromContext returns the projection stored by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return session, ok && session != nil
}

// APIFromContext returns the API handle bound to the current session.
func APIFromContext(ctx context.Context) (apiclient.API, bool) {
	api, ok := ctx.Value(ContextKeyAPI).(apiclient.API)
	return api, ok
}

