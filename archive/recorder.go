package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/studio/metrics"
)

// Recorder persists completed streams.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// RecordTurn persists one completed chat turn.
	RecordTurn(ctx context.Context, r TurnRecord) error
	// RecordRun persists one completed script run.
	RecordRun(ctx context.Context, r RunRecord) error
	// Close releases resources.
	Close() error
}

// LodeRecorder writes records to a Lode dataset, one snapshot per record.
type LodeRecorder struct {
	ds        lode.Dataset
	collector *metrics.Collector

	mu     sync.Mutex
	closed bool
}

// NewLodeRecorder creates a recorder over ds. collector may be nil.
func NewLodeRecorder(ds lode.Dataset, collector *metrics.Collector) *LodeRecorder {
	return &LodeRecorder{ds: ds, collector: collector}
}

// OpenRecorder creates a LodeRecorder for the storage selected by cfg.
func OpenRecorder(ctx context.Context, cfg Config, collector *metrics.Collector) (*LodeRecorder, error) {
	ds, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewLodeRecorder(ds, collector), nil
}

// Dataset returns the underlying dataset for read paths.
func (r *LodeRecorder) Dataset() lode.Dataset {
	return r.ds
}

// RecordTurn implements Recorder.
func (r *LodeRecorder) RecordTurn(ctx context.Context, rec TurnRecord) error {
	return r.write(ctx, toTurnRecordMap(rec), rec.SessionID)
}

// RecordRun implements Recorder.
func (r *LodeRecorder) RecordRun(ctx context.Context, rec RunRecord) error {
	return r.write(ctx, toRunRecordMap(rec), rec.RunID)
}

func (r *LodeRecorder) write(ctx context.Context, record map[string]any, streamID string) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return fmt.Errorf("archive: recorder is closed")
	}
	if streamID == "" {
		r.collector.IncArchiveWriteFailure()
		return fmt.Errorf("archive: record has no stream id")
	}

	record["record_id"] = uuid.NewString()
	_, err := r.ds.Write(ctx, []any{record}, lode.Metadata{})
	if err != nil {
		r.collector.IncArchiveWriteFailure()
		return WrapWriteError(err, fmt.Sprintf("%s/%s", r.ds.ID(), streamID))
	}
	r.collector.IncArchiveWriteSuccess()
	return nil
}

// Close implements Recorder. Subsequent writes fail.
func (r *LodeRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// StubRecorder keeps records in memory.
// Used when archiving is disabled and in tests.
type StubRecorder struct {
	mu    sync.Mutex
	Turns []TurnRecord
	Runs  []RunRecord
	// Err, when set, is returned from every Record call.
	Err    error
	Closed bool
}

// RecordTurn implements Recorder.
func (s *StubRecorder) RecordTurn(_ context.Context, r TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Turns = append(s.Turns, r)
	return nil
}

// RecordRun implements Recorder.
func (s *StubRecorder) RecordRun(_ context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Runs = append(s.Runs, r)
	return nil
}

// Close implements Recorder.
func (s *StubRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Snapshot returns copies of the recorded turns and runs.
func (s *StubRecorder) Snapshot() ([]TurnRecord, []RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TurnRecord(nil), s.Turns...), append([]RunRecord(nil), s.Runs...)
}

var (
	_ Recorder = (*LodeRecorder)(nil)
	_ Recorder = (*StubRecorder)(nil)
)
