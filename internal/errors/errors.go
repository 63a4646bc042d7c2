package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Credential exchange errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token lifecycle errors
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshAccessToken   = errors.New("refresh access token failed")
	ErrUpstreamUnauthorized = errors.New("upstream rejected access token")

	// Session carrier errors
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")

	// Remote API errors
	ErrHTTPStatus      = errors.New("unexpected http status")
	ErrInvalidResponse = errors.New("invalid response body")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// StatusError records a non-success HTTP status from the remote API.
// It matches ErrHTTPStatus with errors.Is.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
