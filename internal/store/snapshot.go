package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jpalmerr/heartbeat/internal/status"
)

// Snapshot is the full mapping from application name to current status.
type Snapshot map[string]status.AppStatus

// snapshotEntry is the persisted form of one status. Status is a pointer so
// that a missing field can be told apart from an empty status.
type snapshotEntry struct {
	Status       *string `json:"status"`
	Timestamp    string  `json:"timestamp"`
	ExpiryPeriod string  `json:"expiry_period"`
}

// EncodeSnapshot serialises snap as a JSON object keyed by application name.
// Keys are emitted in sorted order so equal snapshots encode identically.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	entries := make(map[string]snapshotEntry, len(snap))
	for name, st := range snap {
		s := st.Status()
		entries[name] = snapshotEntry{
			Status:       &s,
			Timestamp:    status.FormatTimestamp(st.Timestamp()),
			ExpiryPeriod: status.FormatExpiry(st.Expiry()),
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses data written by [EncodeSnapshot].
//
// Every failure wraps [ErrCorruptSnapshot]: a snapshot that exists but
// cannot be read is never mistaken for an empty one.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var entries map[string]snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: snapshot is not a JSON object", ErrCorruptSnapshot)
	}

	snap := make(Snapshot, len(entries))
	for name, e := range entries {
		if name == "" {
			return nil, fmt.Errorf("%w: entry with empty application name", ErrCorruptSnapshot)
		}
		if e.Status == nil {
			return nil, fmt.Errorf("%w: %q: status is missing", ErrCorruptSnapshot, name)
		}
		ts, err := status.ParseTimestamp(e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrCorruptSnapshot, name, err)
		}
		expiry, err := status.ParseExpiry(e.ExpiryPeriod)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrCorruptSnapshot, name, err)
		}
		snap[name] = status.New(name, *e.Status, ts, expiry)
	}
	return snap, nil
}
