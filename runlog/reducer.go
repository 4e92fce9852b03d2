// Package runlog classifies streamed script output into log lines and
// drives script runs against the backend.
package runlog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pithecene-io/studio/types"
)

// Classify formats one raw run payload as a log entry.
//
// A JSON object whose "type" is stdout, stderr or status and which carries
// a "data" field becomes "[type] data". Everything else, including invalid
// JSON, is returned unchanged. String data is used verbatim; other data is
// rendered as compact JSON.
func Classify(raw string) types.RunLogEntry {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil || probe == nil {
		return raw
	}

	var channel string
	if err := json.Unmarshal(probe["type"], &channel); err != nil {
		return raw
	}
	switch types.LogChannel(channel) {
	case types.ChannelStdout, types.ChannelStderr, types.ChannelStatus:
	default:
		return raw
	}

	data, ok := probe["data"]
	if !ok {
		return raw
	}
	return fmt.Sprintf("[%s] %s", channel, renderData(data))
}

func renderData(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

// Start begins a new run: the run id is replaced, the log is cleared and
// the run is marked running. Artifacts are left as they were.
func Start(s types.RunState, runID string) types.RunState {
	out := s.Clone()
	out.RunID = runID
	out.Logs = nil
	out.Running = true
	return out
}

// Append classifies raw and appends it to the log when runID is the
// current run. Payloads from a superseded run are dropped.
func Append(s types.RunState, runID, raw string) types.RunState {
	if runID != s.RunID {
		return s
	}
	out := s.Clone()
	out.Logs = append(out.Logs, Classify(raw))
	return out
}

// Finish marks the run stopped when runID is the current run. Idempotent.
func Finish(s types.RunState, runID string) types.RunState {
	if runID != s.RunID {
		return s
	}
	s.Running = false
	return s
}

// Stop marks the run stopped locally. The run id is retained so artifacts
// can still be fetched.
func Stop(s types.RunState) types.RunState {
	s.Running = false
	return s
}

// SetArtifacts replaces the artifact list.
func SetArtifacts(s types.RunState, names []string) types.RunState {
	out := s.Clone()
	out.Artifacts = append([]string(nil), names...)
	return out
}
