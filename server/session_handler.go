package server

import (
	"net/http"

	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

// SessionHandler serves the session projection as JSON (GET /api/auth/session).
// Reading the session runs the token transition, so a stale access token is
// refreshed here and the new token persisted. Without a session the body is {}.
// A request the client abandoned mid-refresh persists nothing.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.nowFunc()

		prev, err := s.deps.Carrier.Load(r, now)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrInvalidSession) {
				s.deps.Carrier.Clear(w, r)
			}
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		tok, outcome := s.deps.Store.Next(r.Context(), prev, nil, now)
		if err := r.Context().Err(); err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Session read abandoned")
			return
		}
		if outcome.Changed() {
			if err := s.deps.Carrier.Save(w, r, tok, now); err != nil {
				zerolog.Ctx(r.Context()).Err(err).Msg("Failed to persist session")
			}
		}
		writeJSON(w, http.StatusOK, sessions.Project(tok))
	}
}
