// Package names is the shared client for the remote off-topic name store.
//
// The store is a small REST API:
//
//	GET    /bot/off-topic-channel-names                 -> ["name", ...]
//	GET    /bot/off-topic-channel-names?random_items=3  -> 3 random names
//	POST   /bot/off-topic-channel-names?name=foo        -> 201
//	DELETE /bot/off-topic-channel-names/foo             -> 204
package names

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"
)

const endpoint = "bot/off-topic-channel-names"

type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	RetryMax int
}

type Client struct {
	base  *url.URL
	token string
	http  *retryablehttp.Client
	log   *slog.Logger
}

type listParams struct {
	RandomItems int `url:"random_items,omitempty"`
}

func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("names: base_url required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("names: invalid base_url: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.RetryMax
	if rc.RetryMax <= 0 {
		rc.RetryMax = 2
	}
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	} else {
		rc.HTTPClient.Timeout = 10 * time.Second
	}

	return &Client{
		base:  base,
		token: strings.TrimSpace(cfg.Token),
		http:  rc,
		log:   log,
	}, nil
}

// List returns every name in the pool.
func (c *Client) List(ctx context.Context) ([]string, error) {
	return c.get(ctx, listParams{})
}

// Random returns up to n random distinct names from the pool.
func (c *Client) Random(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("names: random_items must be positive")
	}
	return c.get(ctx, listParams{RandomItems: n})
}

// Add stores a new name in the pool.
func (c *Client) Add(ctx context.Context, name string) error {
	u := c.base.JoinPath(endpoint)
	u.RawQuery = url.Values{"name": {name}}.Encode()
	return c.call(ctx, http.MethodPost, u, nil)
}

// Delete removes a name from the pool.
func (c *Client) Delete(ctx context.Context, name string) error {
	u := c.base.JoinPath(endpoint, name)
	return c.call(ctx, http.MethodDelete, u, nil)
}

// Ping probes the API with a cheap list request. Used by /status.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Random(ctx, 1)
	return err
}

func (c *Client) get(ctx context.Context, p listParams) ([]string, error) {
	u := c.base.JoinPath(endpoint)
	qv, err := query.Values(p)
	if err != nil {
		return nil, fmt.Errorf("names: encode params: %w", err)
	}
	u.RawQuery = qv.Encode()

	var out []string
	if err := c.call(ctx, http.MethodGet, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, u *url.URL, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("names: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("names: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if c.log != nil {
		c.log.Debug("site api call",
			slog.String("method", method),
			slog.String("path", u.Path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("dur", time.Since(start)),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   u.Path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("names: decode response: %w", err)
	}
	return nil
}
