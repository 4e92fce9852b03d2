// Package backend is the HTTP client for the studio backend process.
//
// Streaming endpoints are exposed as request builders; the stream package
// drives them. Every other endpoint is an ordinary JSON request/response
// call returning *StatusError for non-2xx responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pithecene-io/studio/iox"
)

// DefaultBaseURL is the address the backend listens on by default.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody bounds how much of a non-2xx body is kept on StatusError.
const maxErrorBody = 1024

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000 (default DefaultBaseURL).
	BaseURL string
	// Headers are custom HTTP headers added to every request.
	Headers map[string]string
	// HTTPClient is used for every request. The default has no timeout,
	// so long-lived streams are bounded only by the caller's context.
	HTTPClient *http.Client
	// RateLimit caps non-streaming requests per second. Zero disables it.
	RateLimit float64
}

// Client talks to the backend.
type Client struct {
	base    *url.URL
	headers map[string]string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client from cfg.
// Returns an error if the base URL is not an absolute http(s) URL.
func NewClient(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", raw)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: missing host", raw)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be >= 0, got %v", cfg.RateLimit)
	}

	c := &Client{
		base:    base,
		headers: cfg.Headers,
		http:    cfg.HTTPClient,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// HTTPClient returns the shared HTTP client, for the stream driver.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// IsNotFound returns true if err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// endpoint resolves path against the base URL. Path segments must already
// be escaped.
func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// newRequest builds a request with the configured headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// newJSONRequest builds a request with a JSON-encoded body.
func (c *Client) newJSONRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("%s %s: rate limit: %w", req.Method, req.URL.Path, err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: request failed: %w", req.Method, req.URL.Path, err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: iox.ReadPrefix(resp.Body, maxErrorBody)}
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// call is newJSONRequest followed by do.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newJSONRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	return c.do(req, out)
}
