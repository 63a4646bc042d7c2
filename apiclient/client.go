package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ivyedsg/repify-web/internal/errors"
	"github.com/ivyedsg/repify-web/sessions"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 1 << 20

var _ sessions.Refresher = (*Client)(nil)

// Client talks to the remote REST API. Every call is bounded by the client
// timeout; hitting the deadline is reported like any other network failure.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      *responseCache
}

type Option func(*Client)

// WithHTTPClient overrides the transport used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache enables the GET response cache. A zero size or ttl disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newResponseCache(size, ttl)
	}
}

func New(baseURL string, timeout time.Duration, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	return c
}

// Login posts the credentials to the authentication endpoint.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, PathLogin, loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*sessions.RefreshResult, error) {
	var out refreshResponse
	if err := c.postJSON(ctx, PathTokenRefresh, refreshRequest{Refresh: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &sessions.RefreshResult{
		AccessToken:  out.Access,
		RefreshToken: out.Refresh,
	}, nil
}

// Probe replays method and path against the API with accessToken as bearer
// credential and reports the status code. The body is discarded.
func (c *Client) Probe(ctx context.Context, method, path, accessToken string) (int, error) {
	resp, err := c.withToken(accessToken).do(ctx, method, path, nil)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	zerolog.Ctx(ctx).Debug().Str("method", http.MethodPost).Str("path", path).Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).Msg("API call")

	return decodeResponse(resp, http.MethodPost, path, out)
}

func decodeResponse(resp *http.Response, method, path string, out any) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if err := checkStatus(resp.StatusCode, method, path); err != nil {
		return err
	}
	return decodeBody(data, method, path, out)
}

func decodeBody(data []byte, method, path string, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", apperrors.ErrInvalidResponse, method, path, err)
	}
	return nil
}

func checkStatus(code int, method, path string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	statusErr := &apperrors.StatusError{Method: method, Path: path, StatusCode: code}
	if code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", apperrors.ErrUpstreamUnauthorized, statusErr)
	}
	return statusErr
}
