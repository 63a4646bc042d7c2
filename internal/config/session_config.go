package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type SessionConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetCookieName() string
	GetProtectedPrefixes() []string
	GetSessionStore() string
}

// Session carrier kinds
const (
	SessionStoreCookie = "cookie" // sealed token in the cookie itself
	SessionStoreMemory = "memory" // opaque id in the cookie, token kept in process
)

type Session struct {
	AccessTTL         time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"10m"`
	RefreshTTL        time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`
	CookieName        string        `env:"COOKIE_NAME" envDefault:"repify_session"`
	ProtectedPrefixes []string      `env:"PROTECTED_PREFIXES" envSeparator:"," envDefault:"/dashboard"`
	Store             string        `env:"SESSION_STORE" envDefault:"cookie"`
}

var _ SessionConfig = Session{}

func (s Session) GetAccessTokenTTL() time.Duration {
	return s.AccessTTL
}

// GetRefreshTokenTTL is the absolute session ceiling. Refreshing never extends it.
func (s Session) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTTL
}

func (s Session) GetCookieName() string {
	return s.CookieName
}

// GetProtectedPrefixes returns the configured prefixes without trailing slashes,
// in configuration order and with duplicates removed.
func (s Session) GetProtectedPrefixes() []string {
	prefixes := make([]string, 0, len(s.ProtectedPrefixes))
	for _, p := range s.ProtectedPrefixes {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p != "" && !slices.Contains(prefixes, p) {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

func (s Session) GetSessionStore() string {
	return strings.ToLower(strings.TrimSpace(s.Store))
}

func (s Session) validate() error {
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if s.AccessTTL > s.RefreshTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL (%s) must not exceed REFRESH_TOKEN_TTL (%s)", s.AccessTTL, s.RefreshTTL)
	}
	if strings.TrimSpace(s.CookieName) == "" {
		return fmt.Errorf("COOKIE_NAME must not be empty")
	}
	switch s.GetSessionStore() {
	case SessionStoreCookie, SessionStoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreCookie, SessionStoreMemory, s.Store)
	}
	if len(s.GetProtectedPrefixes()) == 0 {
		return fmt.Errorf("PROTECTED_PREFIXES must name at least one path")
	}
	for _, p := range s.GetProtectedPrefixes() {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("protected prefix %q must start with '/'", p)
		}
	}
	return nil
}
