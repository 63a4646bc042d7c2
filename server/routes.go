package server

import (
	"fmt"
	"net/http"
)

func (s *Server) initRoutes() error {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	loginPage, err := s.LoginPageUIHandler()
	if err != nil {
		return err
	}
	landing, err := s.DashboardHandler()
	if err != nil {
		return err
	}

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(loginPage, s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteFunc("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteFunc("OPTIONS "+RouteAPISession, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Protected area: every path under a prefix goes through the route gate
	for _, prefix := range s.config.GetProtectedPrefixes() {
		if prefix == "" || prefix == "/" {
			return fmt.Errorf("protected prefix %q would cover the login page", prefix)
		}
		handler := ChainMiddleware(landing, s.HTMLMiddleWare(s.NoStoreMiddleware, s.RequireSession())...)
		s.RegisterRouteFunc(prefix, handler)
		s.RegisterRouteFunc(prefix+"/", handler)
	}
	return nil
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// PreflightHandler answers OPTIONS requests that the CORS middleware let through.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", s.config.GetAllowedMethods())
		w.WriteHeader(http.StatusNoContent)
	}
}
