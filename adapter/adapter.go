// Package adapter defines the completion-notification boundary.
//
// Adapters publish a stream_completed event to a downstream system each
// time a chat or run stream ends. Publishing is best effort: a failed
// publish is logged and counted, never surfaced to the reducers.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

// EventTypeStreamCompleted is the event_type of every published event.
const EventTypeStreamCompleted = "stream_completed"

// Feature names the stream that completed.
type Feature string

// Features that publish completion events.
const (
	FeatureChat Feature = "chat"
	FeatureRun  Feature = "run"
)

// StreamCompletedEvent is the payload published when a stream ends.
type StreamCompletedEvent struct {
	ContractVersion string  `json:"contract_version"`
	EventType       string  `json:"event_type"` // always "stream_completed"
	EventID         string  `json:"event_id"`
	Feature         Feature `json:"feature"`
	// StreamID is the chat session id or the run id.
	StreamID   string `json:"stream_id"`
	Outcome    string `json:"outcome"` // sentinel, eof, error
	Error      string `json:"error,omitempty"`
	Payloads   int64  `json:"payloads"`
	Timestamp  string `json:"timestamp"` // RFC 3339
	DurationMs int64  `json:"duration_ms"`
}

// NewStreamCompletedEvent builds the event for a finished drive.
func NewStreamCompletedEvent(feature Feature, streamID string, res stream.Result, now time.Time) *StreamCompletedEvent {
	ev := &StreamCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeStreamCompleted,
		EventID:         uuid.NewString(),
		Feature:         feature,
		StreamID:        streamID,
		Outcome:         res.Outcome.String(),
		Payloads:        res.Payloads,
		Timestamp:       now.UTC().Format(time.RFC3339),
		DurationMs:      res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

// Adapter publishes completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *StreamCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// DefaultBackoff is the delay before the first retry; each later retry doubles it.
const DefaultBackoff = 500 * time.Millisecond

// ErrNonRetriable marks an attempt error that must not be retried.
var ErrNonRetriable = errors.New("non-retriable")

// Retry runs attempt up to 1+retries times with exponential backoff between
// attempts. It stops early when attempt returns an error wrapping
// ErrNonRetriable or when ctx ends. Returns the number of attempts made and
// the last error.
func Retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error) (int, error) {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var lastErr error
	attempts := 1 + retries
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * backoff
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return i, ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return i + 1, nil
		}
		if errors.Is(lastErr, ErrNonRetriable) {
			return i + 1, lastErr
		}
	}
	return attempts, lastErr
}
