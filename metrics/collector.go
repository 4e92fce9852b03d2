// Package metrics provides per-invocation counters for stream consumption.
//
// The Collector accumulates counters across every stream driven during a
// single CLI invocation. It is a leaf package with no internal dependencies,
// so stream outcomes and error kinds are recorded through dedicated methods
// rather than typed values.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Stream lifecycle
	StreamsStarted  int64
	StreamsSentinel int64
	StreamsEOF      int64
	StreamsFailed   int64

	// Errors by kind
	TransportErrors int64
	ReadErrors      int64
	CanceledErrors  int64

	// Delivery
	PayloadsDelivered int64
	BytesRead         int64

	// Archive
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64

	// Adapter
	PublishSuccess int64
	PublishFailure int64

	// Dimensions (informational, set at construction)
	Feature        string
	StorageBackend string
	Adapter        string
}

// Collector accumulates counters for one invocation.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	streamsStarted  int64
	streamsSentinel int64
	streamsEOF      int64
	streamsFailed   int64

	transportErrors int64
	readErrors      int64
	canceledErrors  int64

	payloadsDelivered int64
	bytesRead         int64

	archiveWriteSuccess int64
	archiveWriteFailure int64

	publishSuccess int64
	publishFailure int64

	feature        string
	storageBackend string
	adapter        string
}

// NewCollector creates a Collector with dimension labels.
// Empty labels are allowed and reported as-is.
func NewCollector(feature, storageBackend, adapter string) *Collector {
	return &Collector{
		feature:        feature,
		storageBackend: storageBackend,
		adapter:        adapter,
	}
}

func (c *Collector) inc(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Stream lifecycle ---

// IncStreamStarted records a request issued by the stream driver.
func (c *Collector) IncStreamStarted() {
	if c == nil {
		return
	}
	c.inc(&c.streamsStarted, 1)
}

// IncStreamSentinel records a stream ended by the in-band sentinel.
func (c *Collector) IncStreamSentinel() {
	if c == nil {
		return
	}
	c.inc(&c.streamsSentinel, 1)
}

// IncStreamEOF records a stream ended by transport closure.
func (c *Collector) IncStreamEOF() {
	if c == nil {
		return
	}
	c.inc(&c.streamsEOF, 1)
}

// IncStreamFailed records a stream ended by an error.
func (c *Collector) IncStreamFailed() {
	if c == nil {
		return
	}
	c.inc(&c.streamsFailed, 1)
}

// --- Errors ---

// IncTransportError records a failed request or non-success status.
func (c *Collector) IncTransportError() {
	if c == nil {
		return
	}
	c.inc(&c.transportErrors, 1)
}

// IncReadError records a failure while consuming a response body.
func (c *Collector) IncReadError() {
	if c == nil {
		return
	}
	c.inc(&c.readErrors, 1)
}

// IncCanceledError records a stream abandoned by context cancellation.
func (c *Collector) IncCanceledError() {
	if c == nil {
		return
	}
	c.inc(&c.canceledErrors, 1)
}

// --- Delivery ---

// AddPayloads records payloads delivered to a sink.
func (c *Collector) AddPayloads(n int64) {
	if c == nil || n == 0 {
		return
	}
	c.inc(&c.payloadsDelivered, n)
}

// AddBytesRead records response body bytes consumed.
func (c *Collector) AddBytesRead(n int64) {
	if c == nil || n == 0 {
		return
	}
	c.inc(&c.bytesRead, n)
}

// --- Archive / Adapter ---
// Archive counters are per-call, not per-record.

// IncArchiveWriteSuccess records a successful archive write.
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.archiveWriteSuccess, 1)
}

// IncArchiveWriteFailure records a failed archive write.
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.archiveWriteFailure, 1)
}

// IncPublishSuccess records a delivered completion event.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.publishSuccess, 1)
}

// IncPublishFailure records a completion event that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.inc(&c.publishFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		StreamsStarted:  c.streamsStarted,
		StreamsSentinel: c.streamsSentinel,
		StreamsEOF:      c.streamsEOF,
		StreamsFailed:   c.streamsFailed,

		TransportErrors: c.transportErrors,
		ReadErrors:      c.readErrors,
		CanceledErrors:  c.canceledErrors,

		PayloadsDelivered: c.payloadsDelivered,
		BytesRead:         c.bytesRead,

		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Feature:        c.feature,
		StorageBackend: c.storageBackend,
		Adapter:        c.adapter,
	}
}
