package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/ivyedsg/repify-web/internal/utils"
	"github.com/rs/zerolog"
)

// RefreshResult is the remote API's answer to a refresh request.
// RefreshToken is nil when the server did not rotate it.
type RefreshResult struct {
	AccessToken  string
	RefreshToken *string
}

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
}

// Outcome names which branch a transition took.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeIssued
	OutcomeUnchanged
	OutcomeRefreshed
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeErrored:
		return "errored"
	default:
		return "none"
	}
}

// Changed reports whether the transition produced a token that must be persisted.
func (o Outcome) Changed() bool {
	return o == OutcomeIssued || o == OutcomeRefreshed || o == OutcomeErrored
}

var errNoRefresher = errors.New("no refresher configured")

// Store computes token state transitions. It holds no session state itself;
// every call derives its decision from the absolute timestamps on the token.
type Store struct {
	refresher Refresher
	lifetimes Lifetimes
}

func NewStore(refresher Refresher, lifetimes Lifetimes) *Store {
	return &Store{
		refresher: refresher,
		lifetimes: lifetimes,
	}
}

// Next returns the token state that follows prev at now.
// A non-nil login always issues a fresh token. Otherwise the token is tagged
// RefreshTokenExpired once the session ceiling has passed, returned unchanged while
// its access token is valid, and refreshed in between. The ceiling is checked first
// since a refresh may leave the access expiry past it. At most one network call
// is made and prev is never mutated.
func (s *Store) Next(ctx context.Context, prev *Token, login *User, now time.Time) (*Token, Outcome) {
	if login != nil {
		return NewToken(login, now, s.lifetimes), OutcomeIssued
	}
	if prev == nil {
		return nil, OutcomeNone
	}
	if prev.Terminal() {
		return prev, OutcomeUnchanged
	}
	if prev.Expired(now) {
		return prev.withError(RefreshTokenExpired), OutcomeErrored
	}
	if prev.AccessValid(now) {
		return prev, OutcomeUnchanged
	}

	next := s.Refresh(ctx, prev, now)
	if next.Terminal() {
		return next, OutcomeErrored
	}
	return next, OutcomeRefreshed
}

// Refresh exchanges prev's refresh token. On success the access token, the refresh
// token (when rotated) and the access expiry are replaced together; the session
// ceiling is carried over. On any failure a copy of prev tagged
// RefreshAccessTokenError is returned. The failure is not retried.
func (s *Store) Refresh(ctx context.Context, prev *Token, now time.Time) *Token {
	if s.refresher == nil {
		zerolog.Ctx(ctx).Err(errNoRefresher).Str("user_id", prev.UserID).Msg("Token refresh failed")
		return prev.withError(RefreshAccessTokenError)
	}

	res, err := s.refresher.Refresh(ctx, prev.RefreshToken)
	if err == nil && (res == nil || res.AccessToken == "") {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		zerolog.Ctx(ctx).Err(err).Str("user_id", prev.UserID).Msg("Token refresh failed")
		return prev.withError(RefreshAccessTokenError)
	}

	next := *prev
	next.AccessToken = res.AccessToken
	next.RefreshToken = utils.ValueOr(res.RefreshToken, prev.RefreshToken)
	next.AccessTokenExpiresAt = now.Add(s.lifetimes.AccessTTL)
	return &next
}
