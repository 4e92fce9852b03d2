// Package webhook delivers completion events as signed JSON POSTs.
//
// Server errors, 408 and 429 are retried with exponential backoff; any other
// non-2xx status fails the publish at once.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Request headers set on every delivery.
const (
	HeaderEvent     = "X-Studio-Event"
	HeaderFeature   = "X-Studio-Feature"
	HeaderSignature = "X-Studio-Signature"
	HeaderDelivery  = "Idempotency-Key"
)

// maxErrorBody bounds the response body kept on a StatusError.
const maxErrorBody = 256

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are added to each request after the studio headers.
	Headers map[string]string
	// Secret, when set, signs each body: HeaderSignature carries
	// "sha256=" + hex(HMAC-SHA256(secret, body)).
	Secret string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
	// Backoff is the delay before the first retry (default adapter.DefaultBackoff).
	Backoff time.Duration
}

// Adapter publishes completion events via HTTP POST.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates a webhook adapter.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retriable reports whether a later attempt could succeed.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Publish delivers the event. The event id doubles as the idempotency key,
// so receivers can drop duplicates caused by retries.
func (a *Adapter) Publish(ctx context.Context, event *adapter.StreamCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	attempts, err := adapter.Retry(ctx, a.cfg.Retries, a.cfg.Backoff, func(ctx context.Context) error {
		err := a.post(ctx, event, body)
		if se := (*StatusError)(nil); errors.As(err, &se) && !se.Retriable() {
			return fmt.Errorf("%w: %w", adapter.ErrNonRetriable, err)
		}
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, adapter.ErrNonRetriable):
		return fmt.Errorf("webhook: %w", err)
	case ctx.Err() != nil:
		return fmt.Errorf("webhook: context canceled: %w", ctx.Err())
	default:
		return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, err)
	}
}

func (a *Adapter) post(ctx context.Context, event *adapter.StreamCompletedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.EventType)
	req.Header.Set(HeaderFeature, string(event.Feature))
	if event.EventID != "" {
		req.Header.Set(HeaderDelivery, event.EventID)
	}
	if a.cfg.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(a.cfg.Secret, body))
	}
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drained so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return &StatusError{Code: resp.StatusCode, Body: iox.ReadPrefix(resp.Body, maxErrorBody)}
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
