package types

// LogChannel is the type discriminator carried by structured run payloads.
type LogChannel string

// Channels emitted by the script runner.
const (
	ChannelStdout LogChannel = "stdout"
	ChannelStderr LogChannel = "stderr"
	ChannelStatus LogChannel = "status"
)

// RunLogEntry is one pre-formatted run log line, e.g. "[stdout] building".
type RunLogEntry = string

// RunState is the state of the script console.
type RunState struct {
	// Logs is the ordered, append-only log buffer of the current run.
	Logs []RunLogEntry `json:"logs" msgpack:"logs"`
	// Running is true from run start until the stream ends or a stop is issued.
	Running bool `json:"running" msgpack:"running"`
	// RunID is assigned by the server when a run starts. It is cleared only
	// by starting a new run.
	RunID string `json:"run_id,omitempty" msgpack:"run_id,omitempty"`
	// Artifacts holds the artifact names last fetched for RunID.
	Artifacts []string `json:"artifacts" msgpack:"artifacts"`
}

// Clone returns a copy whose slices do not alias s.
func (s RunState) Clone() RunState {
	out := s
	if s.Logs != nil {
		out.Logs = append([]RunLogEntry(nil), s.Logs...)
	}
	if s.Artifacts != nil {
		out.Artifacts = append([]string(nil), s.Artifacts...)
	}
	return out
}
