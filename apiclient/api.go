package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// API is the capability handed to page code: the four verbs of the remote API
// with the caller's access token already attached.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
}

// FetchProfile loads the profile of the user api is bound to.
func FetchProfile(ctx context.Context, api API) (*Profile, error) {
	var profile Profile
	if err := api.Get(ctx, PathProfile, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type tokenAPI struct {
	client *Client
	http   *http.Client
	token  string
}

// WithToken returns an API bound to accessToken. Authenticated GETs are served
// from the response cache when it is enabled.
func (c *Client) WithToken(accessToken string) API {
	return c.withToken(accessToken)
}

func (c *Client) withToken(accessToken string) *tokenAPI {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &tokenAPI{
		client: c,
		http:   oauth2.NewClient(ctx, src),
		token:  accessToken,
	}
}

func (a *tokenAPI) Get(ctx context.Context, path string, out any) error {
	if data, ok := a.client.cache.get(path, a.token); ok {
		return decodeBody(data, http.MethodGet, path, out)
	}
	data, err := a.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	a.client.cache.add(path, a.token, data)
	return decodeBody(data, http.MethodGet, path, out)
}

func (a *tokenAPI) Post(ctx context.Context, path string, in, out any) error {
	return a.write(ctx, http.MethodPost, path, in, out)
}

func (a *tokenAPI) Put(ctx context.Context, path string, in, out any) error {
	return a.write(ctx, http.MethodPut, path, in, out)
}

func (a *tokenAPI) Delete(ctx context.Context, path string) error {
	return a.write(ctx, http.MethodDelete, path, nil, nil)
}

// write performs a mutating call and drops every cached response for the token.
func (a *tokenAPI) write(ctx context.Context, method, path string, in, out any) error {
	defer a.client.cache.purgeToken(a.token)
	data, err := a.call(ctx, method, path, in)
	if err != nil {
		return err
	}
	return decodeBody(data, method, path, out)
}

func (a *tokenAPI) call(ctx context.Context, method, path string, in any) ([]byte, error) {
	resp, err := a.do(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if err := checkStatus(resp.StatusCode, method, path); err != nil {
		return nil, err
	}
	return data, nil
}

// do sends the request and hands back the response with the body fully read
// into memory, so the timeout context can be released before returning.
func (a *tokenAPI) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.client.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.client.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	zerolog.Ctx(ctx).Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).Msg("API call")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
