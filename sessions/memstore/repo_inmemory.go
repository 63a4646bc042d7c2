package memstore

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/ivyedsg/repify-web/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		entries: make(map[string]Entry),
	}
}

// Upsert creates or updates a session entry
func (r *InMemoryRepo) Upsert(sessionID string, entry Entry) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[sessionID] = entry
	return nil
}

// Get retrieves a session entry by id
func (r *InMemoryRepo) Get(sessionID string) (Entry, error) {
	if sessionID == "" {
		return Entry{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return Entry{}, apperrors.ErrSessionNotFound
	}
	return entry, nil
}

// Delete removes a session entry
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, sessionID) // Already doesn't exist, no error
	return nil
}

// DeleteExpired drops every entry whose session ceiling has passed and
// reports how many were removed.
func (r *InMemoryRepo) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		if entry.Token.Expired(now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
