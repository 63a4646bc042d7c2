package sessions

import (
	"time"
)

// ErrorTag marks a token whose lifecycle cannot continue.
// A token carrying a non-empty tag is terminal: only a fresh login replaces it.
type ErrorTag string

const (
	ErrorNone               ErrorTag = ""
	RefreshTokenExpired     ErrorTag = "RefreshTokenExpired"
	RefreshAccessTokenError ErrorTag = "RefreshAccessTokenError"
)

// Lifetimes holds the two expiry windows applied at issuance.
type Lifetimes struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultLifetimes returns a 10 minute access window inside a 24 hour session ceiling.
func DefaultLifetimes() Lifetimes {
	return Lifetimes{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

// User is the payload returned by a successful credential exchange.
type User struct {
	ID           string
	Email        string
	University   string
	Career       string
	AccessToken  string
	RefreshToken string
}

// Token is the complete session record carried between requests.
// Profile fields are set once at login and never changed afterwards.
type Token struct {
	UserID     string
	Email      string
	University string
	Career     string

	AccessToken  string
	RefreshToken string

	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time // never moved by a refresh

	Error ErrorTag
}

// NewToken issues a token for a freshly authenticated user.
// This is the only place RefreshTokenExpiresAt is assigned.
func NewToken(user *User, now time.Time, lifetimes Lifetimes) *Token {
	refreshExpiry := now.Add(lifetimes.RefreshTTL)
	accessExpiry := now.Add(lifetimes.AccessTTL)
	if accessExpiry.After(refreshExpiry) {
		accessExpiry = refreshExpiry
	}
	return &Token{
		UserID:                user.ID,
		Email:                 user.Email,
		University:            user.University,
		Career:                user.Career,
		AccessToken:           user.AccessToken,
		RefreshToken:          user.RefreshToken,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshTokenExpiresAt: refreshExpiry,
	}
}

// Terminal reports whether the token carries an error tag.
func (t *Token) Terminal() bool {
	return t.Error != ErrorNone
}

// AccessValid reports whether the access token can be used at now without a refresh.
func (t *Token) AccessValid(now time.Time) bool {
	return now.Before(t.AccessTokenExpiresAt)
}

// Expired reports whether the absolute session ceiling has passed.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.RefreshTokenExpiresAt)
}

// Usable reports whether the token can authorize a request at now as is.
func (t *Token) Usable(now time.Time) bool {
	return t != nil && !t.Terminal() && t.AccessValid(now)
}

func (t *Token) withError(tag ErrorTag) *Token {
	next := *t
	next.Error = tag
	return &next
}
