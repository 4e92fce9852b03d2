package stream

import (
	"fmt"
	"time"
)

// Outcome is how a stream ended.
type Outcome int

const (
	// OutcomeSentinel means the in-band terminator was received.
	OutcomeSentinel Outcome = iota
	// OutcomeEOF means the transport closed without a terminator.
	OutcomeEOF
	// OutcomeError means the stream failed; Result.Err holds the cause.
	OutcomeError
)

// String returns the outcome name used in logs and events.
func (o Outcome) String() string {
	switch o {
	case OutcomeSentinel:
		return "sentinel"
	case OutcomeEOF:
		return "eof"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result summarizes one drive.
type Result struct {
	Outcome  Outcome
	Payloads int64
	Bytes    int64
	Err      error
	Duration time.Duration
}

// Clean reports whether the stream ended without error.
// Sentinel and EOF endings are both clean.
func (r Result) Clean() bool {
	return r.Outcome != OutcomeError
}

// Sink receives the events of one drive.
//
// Calls are made synchronously from the driving goroutine, in order:
// zero or more OnPayload, at most one OnError, then exactly one OnDone.
// Callbacks should only update local state.
type Sink interface {
	OnPayload(payload string)
	OnError(err error)
	OnDone(res Result)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	Payload func(payload string)
	Error   func(err error)
	Done    func(res Result)
}

// OnPayload implements Sink.
func (s SinkFuncs) OnPayload(payload string) {
	if s.Payload != nil {
		s.Payload(payload)
	}
}

// OnError implements Sink.
func (s SinkFuncs) OnError(err error) {
	if s.Error != nil {
		s.Error(err)
	}
}

// OnDone implements Sink.
func (s SinkFuncs) OnDone(res Result) {
	if s.Done != nil {
		s.Done(res)
	}
}
