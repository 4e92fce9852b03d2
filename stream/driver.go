// Package stream drives a single HTTP request/response cycle and dispatches
// decoded SSE payloads to a caller-supplied sink.
//
// Guarantees:
//   - Payloads are delivered in arrival order, before the next body read
//   - OnError fires at most once and is always followed by OnDone
//   - OnDone fires exactly once on every path
//   - Nothing is returned or panicked to the caller as an error
//
// The driver imposes no timeouts. Cancellation comes only from the
// caller's context.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/studio/iox"
	"github.com/pithecene-io/studio/log"
	"github.com/pithecene-io/studio/metrics"
	"github.com/pithecene-io/studio/sse"
)

// DefaultReadSize is the size of the body read buffer.
const DefaultReadSize = 4096

// maxErrorBody bounds how much of a non-success body is kept for the error.
const maxErrorBody = 512

// Driver issues streaming requests. A Driver is safe for concurrent use;
// every Drive call owns its own decoder.
type Driver struct {
	client    *http.Client
	logger    *log.Logger
	collector *metrics.Collector
	readSize  int
}

// Option configures a Driver.
type Option func(*Driver)

// WithHTTPClient sets the HTTP client. The default is a client with no timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(d *Driver) {
		d.collector = c
	}
}

// WithReadSize sets the body read buffer size. Values below 1 are ignored.
func WithReadSize(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.readSize = n
		}
	}
}

// NewDriver creates a driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		client:   &http.Client{},
		readSize: DefaultReadSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Drive performs one request/response cycle and returns how it ended.
// The same Result is passed to sink.OnDone before Drive returns.
// req is cloned before the stream headers are set; the caller's copy is
// left untouched.
//
// On the sentinel the body is closed immediately, without waiting for the
// server to close the connection.
func (d *Driver) Drive(ctx context.Context, req *http.Request, sink Sink) (res Result) {
	start := time.Now()
	d.collector.IncStreamStarted()

	fields := map[string]any{"method": req.Method, "url": req.URL.String()}
	d.logger.Debug("stream request", fields)

	defer func() {
		res.Duration = time.Since(start)
		d.record(res)
		d.notifyDone(sink, res)
	}()

	req = req.Clone(ctx)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return d.fail(sink, res, &StreamError{Kind: ErrorCanceled, Err: ctx.Err()})
		}
		return d.fail(sink, res, &StreamError{Kind: ErrorTransport, Err: err})
	}
	if resp.Body == nil {
		return d.fail(sink, res, &StreamError{Kind: ErrorTransport, Err: errors.New("response has no body")})
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return d.fail(sink, res, &StreamError{
			Kind:       ErrorTransport,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorBody(resp.Body, resp.Status)),
		})
	}
	if resp.Body == http.NoBody {
		return d.fail(sink, res, &StreamError{Kind: ErrorTransport, Err: errors.New("response has no body")})
	}

	dec := sse.NewDecoder()
	buf := make([]byte, d.readSize)
	for {
		select {
		case <-ctx.Done():
			return d.fail(sink, res, &StreamError{Kind: ErrorCanceled, Err: ctx.Err()})
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			res.Bytes += int64(n)
			payloads, done := dec.Feed(buf[:n])
			if err := d.deliver(sink, payloads, &res); err != nil {
				return d.fail(sink, res, &StreamError{Kind: ErrorRead, Err: err})
			}
			if done {
				res.Outcome = OutcomeSentinel
				return res
			}
		}

		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if err := d.deliver(sink, dec.Finish(), &res); err != nil {
				return d.fail(sink, res, &StreamError{Kind: ErrorRead, Err: err})
			}
			res.Outcome = OutcomeEOF
			return res
		}
		if ctx.Err() != nil {
			return d.fail(sink, res, &StreamError{Kind: ErrorCanceled, Err: ctx.Err()})
		}
		return d.fail(sink, res, &StreamError{Kind: ErrorRead, Err: rerr})
	}
}

// deliver hands payloads to the sink in order.
// A panicking sink is reported as an error instead of unwinding the caller.
func (d *Driver) deliver(sink Sink, payloads []string, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("payload sink panicked: %v", r)
		}
	}()
	for _, p := range payloads {
		sink.OnPayload(p)
		res.Payloads++
	}
	return nil
}

// fail routes err to the sink and marks the result as failed.
func (d *Driver) fail(sink Sink, res Result, err *StreamError) Result {
	res.Outcome = OutcomeError
	res.Err = err

	switch err.Kind {
	case ErrorTransport:
		d.collector.IncTransportError()
	case ErrorRead:
		d.collector.IncReadError()
	case ErrorCanceled:
		d.collector.IncCanceledError()
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("error sink panicked", map[string]any{"panic": fmt.Sprint(r)})
			}
		}()
		sink.OnError(err)
	}()
	return res
}

func (d *Driver) notifyDone(sink Sink, res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("done sink panicked", map[string]any{"panic": fmt.Sprint(r)})
		}
	}()
	sink.OnDone(res)
}

func (d *Driver) record(res Result) {
	d.collector.AddPayloads(res.Payloads)
	d.collector.AddBytesRead(res.Bytes)

	fields := map[string]any{
		"outcome":     res.Outcome.String(),
		"payloads":    res.Payloads,
		"bytes":       res.Bytes,
		"duration_ms": res.Duration.Milliseconds(),
	}
	switch res.Outcome {
	case OutcomeSentinel:
		d.collector.IncStreamSentinel()
		d.logger.Debug("stream completed", fields)
	case OutcomeEOF:
		d.collector.IncStreamEOF()
		d.logger.Debug("stream closed without sentinel", fields)
	default:
		d.collector.IncStreamFailed()
		fields["error"] = res.Err.Error()
		d.logger.Warn("stream failed", fields)
	}
}

// errorBody reads a bounded prefix of a non-success body for diagnostics.
func errorBody(body io.Reader, status string) string {
	msg := iox.ReadPrefix(body, maxErrorBody)
	if msg == "" {
		return status
	}
	return status + ": " + msg
}
