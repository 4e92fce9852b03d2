package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/studio/log"
	"github.com/pithecene-io/studio/metrics"
	"github.com/pithecene-io/studio/stream"
)

// DefaultPublishTimeout bounds a whole publish, retries included.
const DefaultPublishTimeout = 30 * time.Second

// Notifier publishes completion events on behalf of the chat and run
// controllers. A nil Notifier, or one without an adapter, does nothing.
type Notifier struct {
	adapter   Adapter
	logger    *log.Logger
	collector *metrics.Collector
	timeout   time.Duration
	now       func() time.Time
}

// NewNotifier wraps a. A zero timeout selects DefaultPublishTimeout.
func NewNotifier(a Adapter, logger *log.Logger, collector *metrics.Collector, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Notifier{
		adapter:   a,
		logger:    logger,
		collector: collector,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Notify publishes the completion of one stream. Failures are logged and
// counted; they never reach the caller.
func (n *Notifier) Notify(ctx context.Context, feature Feature, streamID string, res stream.Result) {
	if n == nil || n.adapter == nil {
		return
	}
	event := NewStreamCompletedEvent(feature, streamID, res, n.now())

	// Publish even when the stream itself was canceled.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.adapter.Publish(pubCtx, event); err != nil {
		n.collector.IncPublishFailure()
		n.logger.Warn("completion event publish failed", map[string]any{
			"feature":   string(feature),
			"stream_id": streamID,
			"event_id":  event.EventID,
			"error":     err.Error(),
		})
		return
	}
	n.collector.IncPublishSuccess()
	n.logger.Debug("completion event published", map[string]any{
		"feature":   string(feature),
		"stream_id": streamID,
		"event_id":  event.EventID,
	})
}

// Close closes the wrapped adapter.
func (n *Notifier) Close() error {
	if n == nil || n.adapter == nil {
		return nil
	}
	return n.adapter.Close()
}
