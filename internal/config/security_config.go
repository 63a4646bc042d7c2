package config

import "fmt"

const (
	minSecretLength = 32
	devSecret       = "repify-dev-session-secret-change-me"
)

type SecurityConfig interface {
	GetSessionSecret() []byte
}

type Security struct {
	Secret string `env:"SESSION_SECRET"`
}

var _ SecurityConfig = Security{}

// GetSessionSecret returns the key material the session cookie is sealed with.
// Outside DEV an explicit secret is enforced by validate.
func (s Security) GetSessionSecret() []byte {
	if s.Secret == "" {
		return []byte(devSecret)
	}
	return []byte(s.Secret)
}

func (s Security) validate(dev bool) error {
	if s.Secret == "" && dev {
		return nil
	}
	if len(s.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLength)
	}
	return nil
}
