package server

import (
	"net/http"

	"github.com/ivyedsg/repify-web/apiclient"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

// IndexHandler sends signed-in users to the landing page and everyone else to login.
// It only reads the cookie; refreshing is left to the route gate.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.nowFunc()
		tok, err := s.deps.Carrier.Load(r, now)
		if err == nil && !tok.Terminal() && !tok.Expired(now) {
			redirectSuccess(w, r, s.landingPath())
			return
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// DashboardPageData contains data for rendering the protected landing page
type DashboardPageData struct {
	AppName   string
	Session   *sessions.Session
	Profile   *apiclient.Profile
	LogoutURL string
}

// DashboardHandler renders the protected landing page from the session projection.
// The profile is fetched through the session's API handle; the page still renders
// without it when the call fails.
func (s *Server) DashboardHandler() (http.HandlerFunc, error) {
	tmpl, err := parseTemplate("dashboard.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		session, ok := SessionFromContext(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}

		data := DashboardPageData{
			AppName:   s.config.GetAppName(),
			Session:   session,
			LogoutURL: RouteAuthLogout,
		}
		if api, ok := APIFromContext(r.Context()); ok {
			profile, err := apiclient.FetchProfile(r.Context(), api)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load profile")
			} else {
				data.Profile = profile
			}
		}
		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to render dashboard template")
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
	}, nil
}
