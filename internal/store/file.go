package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultSnapshotFile is the snapshot file name used when none is configured.
const DefaultSnapshotFile = "heartbeat_data_store.json"

// FileBackend stores the snapshot as a JSON file on local disk.
//
// Saves write to a temporary file in the same directory and rename it over
// the target, so a crash mid-write never leaves a truncated snapshot.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend for the snapshot file at path.
// An empty path uses [DefaultSnapshotFile] in the working directory.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultSnapshotFile
	}
	return &FileBackend{path: path}
}

// Path returns the snapshot file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the snapshot file. A missing file returns [ErrNoSnapshot].
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return data, nil
}

// Save atomically replaces the snapshot file with data.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// remove the temp file on any failure path; after rename this is a no-op
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
