package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIConfig describes the remote REST API the gateway talks to on behalf of the browser.
type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetAPICacheTTL() time.Duration
	GetAPICacheSize() int
	// GetProbePath returns the fixed path probed by the route gate.
	// Empty means the gate replays the requested path.
	GetProbePath() string
}

type API struct {
	BaseURL   string        `env:"API_BASE_URL,required"`
	Timeout   time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	CacheTTL  time.Duration `env:"API_CACHE_TTL" envDefault:"30s"`
	CacheSize int           `env:"API_CACHE_SIZE" envDefault:"256"`
	ProbePath string        `env:"PROBE_PATH"`
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetAPITimeout() time.Duration {
	return a.Timeout
}

func (a API) GetAPICacheTTL() time.Duration {
	return a.CacheTTL
}

func (a API) GetAPICacheSize() int {
	return a.CacheSize
}

func (a API) GetProbePath() string {
	return a.ProbePath
}

func (a API) validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if a.CacheSize < 0 {
		return fmt.Errorf("API_CACHE_SIZE must not be negative")
	}
	if a.ProbePath != "" && !strings.HasPrefix(a.ProbePath, "/") {
		return fmt.Errorf("PROBE_PATH must start with '/'")
	}
	return nil
}
