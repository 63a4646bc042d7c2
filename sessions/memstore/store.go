package memstore

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store keeps the token on the server and hands the browser only an opaque
// session id in an HttpOnly cookie.
type Store struct {
	repo Repo
	name string
}

func New(repo Repo, cookieName string) *Store {
	return &Store{
		repo: repo,
		name: cookieName,
	}
}

func (s *Store) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(cookie.Value)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Load returns a copy of the stored token. Expired entries are still returned
// so the transition can tag them; the sweeper drops them eventually.
func (s *Store) Load(r *http.Request, now time.Time) (*sessions.Token, error) {
	id, ok := s.sessionID(r)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	entry, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	tok := entry.Token
	return &tok, nil
}

// Save stores t under the request's session id, or a fresh id when the request
// carries none or one that belongs to a different user.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, t *sessions.Token, now time.Time) error {
	if sessions.CookieMaxAge(t.RefreshTokenExpiresAt, now) <= 0 {
		s.Clear(w, r)
		return nil
	}

	entry := Entry{Token: *t, CreatedAt: now, UpdatedAt: now}
	id, ok := s.sessionID(r)
	if ok {
		existing, err := s.repo.Get(id)
		if err == nil && existing.Token.UserID == t.UserID {
			entry.CreatedAt = existing.CreatedAt
		} else {
			ok = false
		}
	}
	if !ok {
		id = uuid.NewString()
	}

	if err := s.repo.Upsert(id, entry); err != nil {
		return apperrors.Wrapf(err, "store session")
	}
	sessions.SetCookie(w, r, s.name, id, t.RefreshTokenExpiresAt, now)
	return nil
}

// Clear deletes the stored entry and expires the cookie.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessionID(r); ok {
		if err := s.repo.Delete(id); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to delete session")
		}
	}
	sessions.ClearCookie(w, r, s.name)
}

// Invalidate is the one place a session is destroyed.
func (s *Store) Invalidate(w http.ResponseWriter, r *http.Request, reason error) {
	zerolog.Ctx(r.Context()).Info().Str("path", r.URL.Path).AnErr("reason", reason).Msg("Session invalidated")
	s.Clear(w, r)
}

// RunSweeper removes expired entries every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, nowFunc func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.repo.DeleteExpired(nowFunc()); n > 0 {
				log.Debug().Int("removed", n).Msg("Swept expired sessions")
			}
		}
	}
}
