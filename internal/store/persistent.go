package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jpalmerr/heartbeat/internal/status"
)

// PersistentStore is a [Store] whose contents survive restarts.
//
// Every accepted update is written to the [Backend] as a full snapshot
// before UpdateStatus returns, and is only applied in memory once the write
// succeeds. Reads never touch the backend.
type PersistentStore struct {
	mem     *MemoryStore
	backend Backend
	logger  *slog.Logger

	// writeMu serialises compare, save and apply so snapshots reach the
	// backend in the same order they are applied.
	writeMu sync.Mutex
}

// NewPersistentStore loads the existing snapshot from backend and returns a
// store hydrated from it.
//
// A missing snapshot yields an empty store. A snapshot that cannot be
// decoded returns an error wrapping [ErrCorruptSnapshot]; callers must treat
// that as fatal.
func NewPersistentStore(ctx context.Context, backend Backend, logger *slog.Logger) (*PersistentStore, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		logger.Info("no snapshot found, starting empty")
		return &PersistentStore{mem: NewMemoryStore(), backend: backend, logger: logger}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	logger.Info("snapshot loaded", "applications", len(snap))
	return &PersistentStore{mem: newMemoryStoreFrom(snap), backend: backend, logger: logger}, nil
}

// ListApplications implements [Store].
func (p *PersistentStore) ListApplications() []string {
	return p.mem.ListApplications()
}

// GetStatus implements [Store].
func (p *PersistentStore) GetStatus(appName string) (status.AppStatus, bool) {
	return p.mem.GetStatus(appName)
}

// All implements [Store].
func (p *PersistentStore) All() []status.AppStatus {
	return p.mem.All()
}

// UpdateStatus implements [Store].
//
// A candidate that loses the timestamp comparison returns nil without any
// I/O. When the save fails a [*PersistError] is returned and the in-memory
// state is left as it was.
func (p *PersistentStore) UpdateStatus(ctx context.Context, appName string, candidate status.AppStatus) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if !p.mem.accepts(appName, candidate) {
		p.logger.Debug("stale status discarded",
			"app", appName,
			"timestamp", candidate.Timestamp(),
		)
		return nil
	}

	next := p.mem.Snapshot()
	next[appName] = candidate

	data, err := EncodeSnapshot(next)
	if err != nil {
		return &PersistError{AppName: appName, Err: err}
	}
	if err := p.backend.Save(ctx, data); err != nil {
		p.logger.Error("snapshot save failed", "app", appName, "error", err)
		return &PersistError{AppName: appName, Err: err}
	}

	// writeMu guarantees no other writer ran since accepts
	return p.mem.UpdateStatus(ctx, appName, candidate)
}

// Subscribe implements [Store].
func (p *PersistentStore) Subscribe() <-chan status.AppStatus {
	return p.mem.Subscribe()
}

// Unsubscribe implements [Store].
func (p *PersistentStore) Unsubscribe(ch <-chan status.AppStatus) {
	p.mem.Unsubscribe(ch)
}

// Close releases the backend's resources if it holds any.
//
// Every accepted update is already durable, so there is nothing to flush.
func (p *PersistentStore) Close() error {
	if c, ok := p.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
