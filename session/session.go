// Package session persists the client state that outlives one CLI
// invocation: the conversation and the current run.
//
// Snapshots are msgpack-encoded and written atomically.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/studio/iox"
	"github.com/pithecene-io/studio/types"
)

// FormatVersion is the snapshot encoding version.
const FormatVersion = 1

// DefaultFile is the snapshot file name under the user cache directory.
const DefaultFile = "session.msgpack"

// Snapshot is the persisted client state.
type Snapshot struct {
	Version      int                     `msgpack:"version"`
	Conversation types.ConversationState `msgpack:"conversation"`
	RunID        string                  `msgpack:"run_id,omitempty"`
	Artifacts    []string                `msgpack:"artifacts,omitempty"`
	SavedAt      time.Time               `msgpack:"saved_at"`
}

// New returns an empty snapshot with a fresh session id.
func New() Snapshot {
	return Snapshot{
		Version:      FormatVersion,
		Conversation: types.NewConversation(uuid.NewString()),
	}
}

// RunState returns the run console state the snapshot restores.
func (s Snapshot) RunState() types.RunState {
	return types.RunState{
		RunID:     s.RunID,
		Artifacts: append([]string(nil), s.Artifacts...),
	}
}

// DefaultPath returns the snapshot path under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return filepath.Join(dir, "studio", DefaultFile), nil
}

// Load reads the snapshot at path. A missing file yields New().
//
// A conversation saved mid-stream is restored as finished, since the
// stream that fed it is gone.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read session %s: %w", path, err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode session %s: %w", path, err)
	}
	if snap.Version > FormatVersion {
		return Snapshot{}, fmt.Errorf("session %s: unsupported version %d", path, snap.Version)
	}
	if snap.Conversation.SessionID == "" {
		snap.Conversation.SessionID = uuid.NewString()
	}
	if snap.Conversation.Model == "" {
		snap.Conversation.Model = types.DefaultModel
	}
	snap.Conversation.Streaming = false
	return snap, nil
}

// Save writes snap to path atomically, stamping Version and SavedAt.
func Save(path string, snap Snapshot) error {
	snap.Version = FormatVersion
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return iox.WriteFileAtomic(path, data, 0o600)
}
