package memstore

import (
	"time"

	"github.com/ivyedsg/repify-web/sessions"
)

// Entry is a stored session token keyed by an opaque session id.
type Entry struct {
	Token     sessions.Token
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repo keeps session entries on the server side.
type Repo interface {
	Upsert(sessionID string, entry Entry) error
	Get(sessionID string) (Entry, error)
	Delete(sessionID string) error
	DeleteExpired(now time.Time) int
}
