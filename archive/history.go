package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRecords is returned when no archived record matches a query.
var ErrNoRecords = errors.New("no archived records found")

// Query filters archived records. Empty fields match everything.
type Query struct {
	// Kind is KindTurn or KindRun.
	Kind string
	// StreamID is a session ID (turns) or run ID (runs).
	StreamID string
	// Day is a YYYY-MM-DD partition.
	Day string
	// Limit caps the number of records returned. Zero means no limit.
	Limit int
}

// History reads archived records, newest first.
// Returns ErrNoRecords if none match.
func History(ctx context.Context, ds lode.Dataset, q Query) ([]map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	var out []map[string]any
	// Snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "kind", q.Kind) ||
			!snapshotMatchesFilter(snap, "stream_id", q.StreamID) ||
			!snapshotMatchesFilter(snap, "day", q.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		// Path filtering is coarse; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || !recordMatches(record, q) {
				continue
			}
			out = append(out, record)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

func recordMatches(record map[string]any, q Query) bool {
	if q.Kind != "" && toString(record["kind"]) != q.Kind {
		return false
	}
	if q.StreamID != "" && toString(record["stream_id"]) != q.StreamID {
		return false
	}
	if q.Day != "" && toString(record["day"]) != q.Day {
		return false
	}
	return true
}

// snapshotMatchesFilter checks if any of a snapshot's file paths carries
// the given partition key=value.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so
// stream_id=run-1 does not match stream_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for part := range strings.SplitSeq(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
