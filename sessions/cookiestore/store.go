package cookiestore

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

// Store carries the session token in a single HttpOnly cookie.
type Store struct {
	codec *Codec
	name  string
}

func New(codec *Codec, cookieName string) *Store {
	return &Store{
		codec: codec,
		name:  cookieName,
	}
}

// Load reads the token from the request cookie.
// A missing cookie is ErrSessionNotFound, an unreadable one ErrInvalidSession.
func (s *Store) Load(r *http.Request, now time.Time) (*sessions.Token, error) {
	cookie, err := r.Cookie(s.name)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	return s.codec.Decode(cookie.Value, now)
}

// Save writes t to the response. The cookie lives exactly until the session ceiling.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, t *sessions.Token, now time.Time) error {
	value, err := s.codec.Encode(t, now)
	if err != nil {
		return apperrors.Wrapf(err, "encode session")
	}
	if sessions.CookieMaxAge(t.RefreshTokenExpiresAt, now) <= 0 {
		s.Clear(w, r)
		return nil
	}
	sessions.SetCookie(w, r, s.name, value, t.RefreshTokenExpiresAt, now)
	return nil
}

// Clear expires the session cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) {
	sessions.ClearCookie(w, r, s.name)
}

// Invalidate is the one place a session is destroyed. It is called synchronously
// before the response that redirects away from the protected area is written.
func (s *Store) Invalidate(w http.ResponseWriter, r *http.Request, reason error) {
	zerolog.Ctx(r.Context()).Info().Str("path", r.URL.Path).AnErr("reason", reason).Msg("Session invalidated")
	s.Clear(w, r)
}
