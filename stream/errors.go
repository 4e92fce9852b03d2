package stream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies stream errors.
type ErrorKind int

const (
	// ErrorTransport indicates the request failed, the status was not
	// successful, or the response carried no body.
	ErrorTransport ErrorKind = iota
	// ErrorRead indicates a failure while consuming the response body,
	// including a panic raised by a sink callback.
	ErrorRead
	// ErrorCanceled indicates the caller's context ended the stream.
	ErrorCanceled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorTransport:
		return "transport"
	case ErrorRead:
		return "read"
	case ErrorCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// StreamError is the error routed to Sink.OnError.
type StreamError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// StatusCode is the HTTP status for transport errors caused by a
	// non-success response, zero otherwise.
	StatusCode int
	// Err is the underlying error.
	Err error
}

func (e *StreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error: status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if the error is a transport error.
func IsTransportError(err error) bool {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind == ErrorTransport
	}
	return false
}

// IsReadError returns true if the error is a body read error.
func IsReadError(err error) bool {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind == ErrorRead
	}
	return false
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind == ErrorCanceled
	}
	return false
}
