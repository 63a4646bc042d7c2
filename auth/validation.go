package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

// Validator checks login input before it is sent to the remote API.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := v.ValidateEmail(email); err != nil {
		return err
	}

	if password == "" {
		return fmt.Errorf("password is required")
	}

	return nil
}

// ValidateEmail accepts a single bare address whose domain contains a dot.
func (v *Validator) ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email format")
	}

	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateCallbackURL accepts local paths under one of the given prefixes.
// Anything that could leave the site is rejected.
func ValidateCallbackURL(callbackURL string, prefixes []string) error {
	if callbackURL == "" {
		return fmt.Errorf("callback url is required")
	}
	if !strings.HasPrefix(callbackURL, "/") || strings.HasPrefix(callbackURL, "//") || strings.Contains(callbackURL, "\\") {
		return fmt.Errorf("callback url must be a local path")
	}
	path := callbackURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return nil
		}
	}
	return fmt.Errorf("callback url is outside the protected area")
}
