package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/ivyedsg/repify-web/auth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName     string
	Error       string
	Email       string // Preserve email on error
	CallbackURL string
	FormAction  string
}

// loginRequest is the JSON form of a login submission.
type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl"`
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() (http.HandlerFunc, error) {
	loginTmpl, err := parseTemplate("login.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := LoginPageData{
			AppName:     s.config.GetAppName(),
			Error:       q.Get(paramError),
			Email:       q.Get(paramEmail),
			CallbackURL: s.safeCallbackURL(q.Get(paramCallbackURL)),
			FormAction:  RouteAuthLogin,
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}, nil
}

// LoginSubmissionHandler processes the login form submission (POST /auth/login).
// Form posts are redirected; JSON posts get a JSON answer carrying the target url.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, isJSON, err := parseLoginRequest(w, r)
		if err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		callbackURL := s.safeCallbackURL(req.CallbackURL)
		email := strings.TrimSpace(req.Email)

		user, err := s.deps.Authorizer.Authorize(r.Context(), email, req.Password)
		if err != nil {
			if isJSON {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgInvalidLogin})
				return
			}
			redirectToLoginWithError(w, r, msgInvalidLogin, email, callbackURL)
			return
		}

		now := s.nowFunc()
		tok, _ := s.deps.Store.Next(r.Context(), nil, user, now)
		if err := s.deps.Carrier.Save(w, r, tok, now); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to persist new session")
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}
		zerolog.Ctx(r.Context()).Info().Str("user_id", tok.UserID).Msg("User signed in")

		if isJSON {
			writeJSON(w, http.StatusOK, map[string]string{"url": callbackURL})
			return
		}
		redirectSuccess(w, r, callbackURL)
	}
}

// LogoutHandler clears the session and returns to the login page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.deps.Carrier.Clear(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

func parseLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, bool, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
		return req, true, err
	}

	if err := r.ParseForm(); err != nil {
		return req, false, err
	}
	req.Email = r.FormValue(paramEmail)
	req.Password = r.FormValue(paramPassword)
	req.CallbackURL = r.FormValue(paramCallbackURL)
	return req, false, nil
}

// safeCallbackURL returns callbackURL when it points into the protected area,
// otherwise the landing page.
func (s *Server) safeCallbackURL(callbackURL string) string {
	if err := auth.ValidateCallbackURL(callbackURL, s.config.GetProtectedPrefixes()); err != nil {
		return s.landingPath()
	}
	return callbackURL
}

// landingPath is where a signed-in user goes by default.
func (s *Server) landingPath() string {
	for _, prefix := range s.config.GetProtectedPrefixes() {
		if prefix == RouteDashboard {
			return RouteDashboard
		}
	}
	if prefixes := s.config.GetProtectedPrefixes(); len(prefixes) > 0 {
		return prefixes[0]
	}
	return RouteDashboard
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write JSON response")
	}
}
