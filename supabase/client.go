// Package supabase is a PostgREST client for the Supabase-hosted data store.
// All operations run under the caller's bearer token, so row-level security
// on the store enforces per-user isolation; the client never holds a
// privileged key.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fitagent/backend/llm"
)

const (
	restPath        = "/rest/v1"
	maxResponseSize = 4 * 1024 * 1024
)

// Client talks to the Supabase REST surface.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a store client for the given project URL and anon key.
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes one REST call and decodes the response into out (when non-nil).
// GETs retry once on transient failure; writes never retry, the caller owns
// idempotency.
func (c *Client) do(ctx context.Context, token, method, path string, body, out any, headers map[string]string) error {
	attempts := 1
	if method == http.MethodGet {
		attempts = 2
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
		lastErr = c.doOnce(ctx, token, method, path, body, out, headers)
		if lastErr == nil || !llm.IsTransient(lastErr) {
			return lastErr
		}
		c.logger.Debug("store request failed, retrying", "method", method, "path", path, "error", lastErr)
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, token, method, path string, body, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+restPath+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return llm.NewTransientError(fmt.Errorf("store request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return llm.NewTransientError(fmt.Errorf("reading store response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, method, path, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding store response for %s %s: %w", method, path, err)
	}
	return nil
}

// classifyStatus maps REST failures onto the transient/fatal split used by
// the retry path.
func classifyStatus(status int, method, path string, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	err := fmt.Errorf("store %s %s: status %d: %s", method, path, status, detail)
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return llm.NewTransientError(err)
	default:
		return llm.NewFatalError(err)
	}
}

// returnRepresentation asks PostgREST to echo inserted rows back.
var returnRepresentation = map[string]string{"Prefer": "return=representation"}
