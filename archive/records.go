package archive

import (
	"time"

	"github.com/pithecene-io/studio/types"
)

// Record kinds. Kind is also the first Hive partition key.
const (
	KindTurn = "turn"
	KindRun  = "run"
)

// Partition keys, in layout order.
var partitionKeys = []string{"kind", "day", "stream_id"}

// DeriveDay computes the partition day from a completion time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TurnRecord is one completed chat turn.
type TurnRecord struct {
	SessionID    string
	Model        string
	SystemPrompt string
	User         string
	Assistant    string // partial when the stream failed
	Outcome      string
	Error        string
	Payloads     int64
	DurationMs   int64
	CompletedAt  time.Time
}

// RunRecord is the log of one completed script run.
type RunRecord struct {
	RunID       string
	ScriptID    int64
	Logs        []types.RunLogEntry
	Artifacts   []string
	Outcome     string
	Error       string
	Payloads    int64
	DurationMs  int64
	CompletedAt time.Time
}

// toTurnRecordMap converts a turn to a map for storage.
// Lode HiveLayout requires records as map[string]any.
func toTurnRecordMap(r TurnRecord) map[string]any {
	m := map[string]any{
		"record_kind":      KindTurn,
		"contract_version": types.Version,
		"model":            r.Model,
		"user":             r.User,
		"assistant":        r.Assistant,
		"outcome":          r.Outcome,
		"payloads":         r.Payloads,
		"duration_ms":      r.DurationMs,
		"ts":               r.CompletedAt.UTC().Format(time.RFC3339Nano),

		// Partition keys
		"kind":      KindTurn,
		"day":       DeriveDay(r.CompletedAt),
		"stream_id": r.SessionID,
	}
	if r.SystemPrompt != "" {
		m["system_prompt"] = r.SystemPrompt
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

// toRunRecordMap converts a run to a map for storage.
func toRunRecordMap(r RunRecord) map[string]any {
	logs := r.Logs
	if logs == nil {
		logs = []types.RunLogEntry{}
	}
	artifacts := r.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}
	m := map[string]any{
		"record_kind":      KindRun,
		"contract_version": types.Version,
		"script_id":        r.ScriptID,
		"logs":             logs,
		"artifacts":        artifacts,
		"outcome":          r.Outcome,
		"payloads":         r.Payloads,
		"duration_ms":      r.DurationMs,
		"ts":               r.CompletedAt.UTC().Format(time.RFC3339Nano),

		// Partition keys
		"kind":      KindRun,
		"day":       DeriveDay(r.CompletedAt),
		"stream_id": r.RunID,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}
