package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pithecene-io/studio/metrics"
)

// recordingSink records every callback in order.
type recordingSink struct {
	mu       sync.Mutex
	events   []string
	payloads []string
	errs     []error
	results  []Result
}

func (s *recordingSink) OnPayload(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "payload")
	s.payloads = append(s.payloads, p)
}

func (s *recordingSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "error")
	s.errs = append(s.errs, err)
}

func (s *recordingSink) OnDone(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "done")
	s.results = append(s.results, res)
}

// checkTerminatedOnce checks that done fired exactly once and last.
func (s *recordingSink) checkTerminatedOnce(t *testing.T) {
	t.Helper()
	if len(s.results) != 1 {
		t.Fatalf("OnDone fired %d times, want 1", len(s.results))
	}
	if last := s.events[len(s.events)-1]; last != "done" {
		t.Errorf("last event = %q, want done", last)
	}
	if len(s.errs) > 1 {
		t.Errorf("OnError fired %d times, want at most 1", len(s.errs))
	}
}

func (s *recordingSink) checkEvents(t *testing.T, want ...string) {
	t.Helper()
	if !slices.Equal(s.events, want) {
		t.Errorf("events = %v, want %v", s.events, want)
	}
}

// scriptedBody yields the given chunks, then err (io.EOF when nil).
type scriptedBody struct {
	chunks []string
	err    error
	closed bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closed = true
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func scriptedClient(status int, body io.ReadCloser) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Body:       body,
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
}

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestDrive_SentinelStopsWithoutWaitingForClose(t *testing.T) {
	released := make(chan struct{})
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data:He\n\ndata:llo\n\ndata:[DONE]\n\n")
		w.(http.Flusher).Flush()

		// Keep the connection open; the client must not wait for it.
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		close(released)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	start := time.Now()
	res := NewDriver().Drive(t.Context(), newRequest(t, srv.URL), sink)

	if elapsed := time.Since(start); elapsed >= 4*time.Second {
		t.Errorf("Drive took %v, expected it to return on the sentinel", elapsed)
	}
	if res.Outcome != OutcomeSentinel || !res.Clean() {
		t.Errorf("outcome = %v (clean=%v), want sentinel", res.Outcome, res.Clean())
	}
	if res.Payloads != 2 {
		t.Errorf("Payloads = %d, want 2", res.Payloads)
	}
	if !slices.Equal(sink.payloads, []string{"He", "llo"}) {
		t.Errorf("payloads = %q, want [He llo]", sink.payloads)
	}
	if len(sink.errs) != 0 {
		t.Errorf("unexpected errors: %v", sink.errs)
	}
	sink.checkTerminatedOnce(t)
	if sink.results[0].Outcome != res.Outcome {
		t.Errorf("OnDone outcome = %v, want %v", sink.results[0].Outcome, res.Outcome)
	}

	h := <-headers
	if got := h.Get("Accept"); got != "text/event-stream" {
		t.Errorf("Accept = %q, want text/event-stream", got)
	}
	if got := h.Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler was not released after client closed the body")
	}
}

func TestDrive_LeavesCallerRequestUntouched(t *testing.T) {
	var sent http.Header
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		sent = r.Header.Clone()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("data: x\n\n")),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	req := newRequest(t, "http://backend.test/stream")
	req.Header.Set("Authorization", "Bearer token")

	NewDriver(WithHTTPClient(client)).Drive(t.Context(), req, SinkFuncs{})

	if got := sent.Get("Accept"); got != "text/event-stream" {
		t.Errorf("sent Accept = %q, want text/event-stream", got)
	}
	if got := sent.Get("Authorization"); got != "Bearer token" {
		t.Errorf("sent Authorization = %q, want caller header", got)
	}
	if got := req.Header.Get("Accept"); got != "" {
		t.Errorf("caller request Accept = %q, want unset", got)
	}
	if got := req.Header.Get("Cache-Control"); got != "" {
		t.Errorf("caller request Cache-Control = %q, want unset", got)
	}
	if req.Context() != context.Background() {
		t.Error("caller request context was replaced")
	}
}

func TestDrive_EOFWithoutSentinelFlushesRemainder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"type\":\"stdout\",\"data\":\"building\"}\n\ndata: done")
	}))
	defer srv.Close()

	sink := &recordingSink{}
	res := NewDriver().Drive(t.Context(), newRequest(t, srv.URL), sink)

	if res.Outcome != OutcomeEOF || !res.Clean() {
		t.Errorf("outcome = %v (clean=%v), want eof", res.Outcome, res.Clean())
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	want := []string{`{"type":"stdout","data":"building"}`, "done"}
	if !slices.Equal(sink.payloads, want) {
		t.Errorf("payloads = %q, want %q", sink.payloads, want)
	}
	sink.checkTerminatedOnce(t)
}

func TestDrive_NonSuccessStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	res := NewDriver().Drive(t.Context(), newRequest(t, srv.URL), sink)

	if res.Outcome != OutcomeError || res.Clean() {
		t.Errorf("outcome = %v (clean=%v), want error", res.Outcome, res.Clean())
	}
	if len(sink.payloads) != 0 {
		t.Errorf("payloads = %q, want none", sink.payloads)
	}
	if len(sink.errs) != 1 || !IsTransportError(sink.errs[0]) {
		t.Fatalf("errs = %v, want one transport error", sink.errs)
	}

	var se *StreamError
	if !errors.As(res.Err, &se) {
		t.Fatalf("Err = %T, want *StreamError", res.Err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", se.StatusCode, http.StatusBadGateway)
	}
	if !strings.Contains(se.Error(), "model unavailable") {
		t.Errorf("error %q does not carry the response body", se.Error())
	}

	sink.checkEvents(t, "error", "done")
	sink.checkTerminatedOnce(t)
}

func TestDrive_ConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink := &recordingSink{}
	res := NewDriver().Drive(t.Context(), newRequest(t, url), sink)

	if res.Outcome != OutcomeError {
		t.Errorf("outcome = %v, want error", res.Outcome)
	}
	if !IsTransportError(res.Err) {
		t.Errorf("Err = %v, want transport error", res.Err)
	}
	sink.checkEvents(t, "error", "done")
}

func TestDrive_ReadErrorKeepsDeliveredPayloads(t *testing.T) {
	body := &scriptedBody{
		chunks: []string{"data: part one\n\n", "data: part t"},
		err:    errors.New("connection reset by peer"),
	}
	sink := &recordingSink{}
	res := NewDriver(WithHTTPClient(scriptedClient(http.StatusOK, body))).
		Drive(t.Context(), newRequest(t, "http://backend.test/stream"), sink)

	if res.Outcome != OutcomeError || !IsReadError(res.Err) {
		t.Errorf("outcome = %v, err = %v; want read error", res.Outcome, res.Err)
	}
	if !slices.Equal(sink.payloads, []string{"part one"}) {
		t.Errorf("payloads = %q, want [part one]", sink.payloads)
	}
	sink.checkEvents(t, "payload", "error", "done")
	if !body.closed {
		t.Error("body was not closed")
	}
	sink.checkTerminatedOnce(t)
}

func TestDrive_ChunkSizeDoesNotChangePayloads(t *testing.T) {
	stream := "data: alpha\n\n: ping\n\ndata: beta\r\n\r\ndata: gamma\n\ndata: [DONE]\n\ndata: late\n\n"

	for _, size := range []int{1, 2, 3, 7, 64, DefaultReadSize} {
		body := &scriptedBody{chunks: []string{stream}}
		sink := &recordingSink{}
		res := NewDriver(
			WithHTTPClient(scriptedClient(http.StatusOK, body)),
			WithReadSize(size),
		).Drive(t.Context(), newRequest(t, "http://backend.test/stream"), sink)

		if res.Outcome != OutcomeSentinel {
			t.Errorf("read size %d: outcome = %v, want sentinel", size, res.Outcome)
		}
		if want := []string{"alpha", "beta", "gamma"}; !slices.Equal(sink.payloads, want) {
			t.Errorf("read size %d: payloads = %q, want %q", size, sink.payloads, want)
		}
		sink.checkTerminatedOnce(t)
	}
}

func TestDrive_CancelDuringReadIsCanceledError(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	body := &scriptedBody{chunks: []string{"data: one\n\n", "data: two\n\n", "data: three\n\n"}}
	sink := &recordingSink{}
	cancelling := SinkFuncs{
		Payload: func(p string) {
			sink.OnPayload(p)
			cancel()
		},
		Error: sink.OnError,
		Done:  sink.OnDone,
	}

	res := NewDriver(WithHTTPClient(scriptedClient(http.StatusOK, body))).
		Drive(ctx, newRequest(t, "http://backend.test/stream"), cancelling)

	if res.Outcome != OutcomeError || !IsCanceledError(res.Err) {
		t.Errorf("outcome = %v, err = %v; want canceled error", res.Outcome, res.Err)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want to wrap context.Canceled", res.Err)
	}
	if !slices.Equal(sink.payloads, []string{"one"}) {
		t.Errorf("payloads = %q, want [one]", sink.payloads)
	}
	sink.checkTerminatedOnce(t)
}

func TestDrive_SinkPanicBecomesReadError(t *testing.T) {
	body := &scriptedBody{chunks: []string{"data: boom\n\ndata: after\n\n"}}
	sink := &recordingSink{}
	panicking := SinkFuncs{
		Payload: func(string) { panic("render failed") },
		Error:   sink.OnError,
		Done:    sink.OnDone,
	}

	res := NewDriver(WithHTTPClient(scriptedClient(http.StatusOK, body))).
		Drive(t.Context(), newRequest(t, "http://backend.test/stream"), panicking)

	if res.Outcome != OutcomeError || !IsReadError(res.Err) {
		t.Fatalf("outcome = %v, err = %v; want read error", res.Outcome, res.Err)
	}
	if !strings.Contains(res.Err.Error(), "render failed") {
		t.Errorf("Err = %q, want panic value", res.Err)
	}
	sink.checkTerminatedOnce(t)
}

func TestDrive_DonePanicDoesNotEscape(t *testing.T) {
	body := &scriptedBody{chunks: []string{"data: x\n\n"}}
	sink := SinkFuncs{Done: func(Result) { panic("done handler") }}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Drive panicked: %v", r)
		}
	}()
	NewDriver(WithHTTPClient(scriptedClient(http.StatusOK, body))).
		Drive(t.Context(), newRequest(t, "http://backend.test/stream"), sink)
}

func TestDrive_NoBodyIsTransportError(t *testing.T) {
	sink := &recordingSink{}
	res := NewDriver(WithHTTPClient(scriptedClient(http.StatusNoContent, http.NoBody))).
		Drive(t.Context(), newRequest(t, "http://backend.test/stream"), sink)

	if !IsTransportError(res.Err) {
		t.Errorf("Err = %v, want transport error", res.Err)
	}
	sink.checkEvents(t, "error", "done")
}

func TestDrive_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector("chat", "", "")
	d := NewDriver(WithCollector(collector))

	ok := &scriptedBody{chunks: []string{"data: a\n\ndata: b\n\ndata: [DONE]\n\n"}}
	d.client = scriptedClient(http.StatusOK, ok)
	d.Drive(t.Context(), newRequest(t, "http://backend.test/a"), SinkFuncs{})

	eof := &scriptedBody{chunks: []string{"data: c"}}
	d.client = scriptedClient(http.StatusOK, eof)
	d.Drive(t.Context(), newRequest(t, "http://backend.test/b"), SinkFuncs{})

	d.client = scriptedClient(http.StatusInternalServerError, io.NopCloser(strings.NewReader("")))
	d.Drive(t.Context(), newRequest(t, "http://backend.test/c"), SinkFuncs{})

	s := collector.Snapshot()
	checks := []struct {
		name      string
		got, want int64
	}{
		{"StreamsStarted", s.StreamsStarted, 3},
		{"StreamsSentinel", s.StreamsSentinel, 1},
		{"StreamsEOF", s.StreamsEOF, 1},
		{"StreamsFailed", s.StreamsFailed, 1},
		{"TransportErrors", s.TransportErrors, 1},
		{"PayloadsDelivered", s.PayloadsDelivered, 3},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestStreamError_Formatting(t *testing.T) {
	err := &StreamError{Kind: ErrorTransport, StatusCode: 503, Err: errors.New("Service Unavailable")}
	if got := err.Error(); got != "transport error: status 503: Service Unavailable" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := &StreamError{Kind: ErrorRead, Err: io.ErrUnexpectedEOF}
	if got := wrapped.Error(); got != "read error: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("StreamError does not unwrap to its cause")
	}

	if IsTransportError(errors.New("plain")) {
		t.Error("IsTransportError(plain error) = true")
	}
	if got := ErrorKind(9).String(); got != "ErrorKind(9)" {
		t.Errorf("ErrorKind(9).String() = %q", got)
	}
	if got := OutcomeEOF.String(); got != "eof" {
		t.Errorf("OutcomeEOF.String() = %q", got)
	}
}
