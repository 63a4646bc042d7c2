package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ivyedsg/repify-web/apiclient"
	"github.com/ivyedsg/repify-web/internal/config"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog/log"
)

// Authorizer exchanges login credentials for an authenticated user.
type Authorizer interface {
	Authorize(ctx context.Context, email, password string) (*sessions.User, error)
}

// SessionCarrier persists the session token between requests.
type SessionCarrier interface {
	Load(r *http.Request, now time.Time) (*sessions.Token, error)
	Save(w http.ResponseWriter, r *http.Request, t *sessions.Token, now time.Time) error
	Clear(w http.ResponseWriter, r *http.Request)
}

// Invalidator destroys the session before a forced sign-out redirect.
type Invalidator interface {
	Invalidate(w http.ResponseWriter, r *http.Request, reason error)
}

// Prober replays a request against the remote API and reports the status.
type Prober interface {
	Probe(ctx context.Context, method, path, accessToken string) (int, error)
}

// APIProvider hands out API handles bound to an access token.
type APIProvider interface {
	WithToken(accessToken string) apiclient.API
}

// Dependencies are the collaborators the server is built from.
type Dependencies struct {
	Authorizer  Authorizer
	Store       *sessions.Store
	Carrier     SessionCarrier
	Invalidator Invalidator
	Prober      Prober
	API         APIProvider
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	deps    Dependencies
	gate    *Gate
	nowFunc func() time.Time
}

type Option func(*Server)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = nowFunc
	}
}

func New(config config.Config, deps Dependencies, options ...Option) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		deps:    deps,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.gate = NewGate(deps.Store, deps.Carrier, deps.Invalidator, deps.Prober,
		WithProbePath(config.GetProbePath()),
		WithGateNowFunc(s.nowFunc),
	)

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to register routes: %w", err)
	}
	s.logRoutes()

	return s, nil
}

func (d Dependencies) validate() error {
	switch {
	case d.Authorizer == nil:
		return errors.New("authorizer is required")
	case d.Store == nil:
		return errors.New("session store is required")
	case d.Carrier == nil:
		return errors.New("session carrier is required")
	case d.Invalidator == nil:
		return errors.New("session invalidator is required")
	case d.Prober == nil:
		return errors.New("prober is required")
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Gate exposes the route gate guarding the protected prefixes.
func (s *Server) Gate() *Gate {
	return s.gate
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("ANY", parts[0])
		}
	}
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}
