package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jpalmerr/heartbeat/internal/status"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage with a publish-subscribe mechanism
// for real-time updates. Statuses are keyed by application name; a status
// only replaces the stored one when its timestamp is strictly greater.
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]status.AppStatus
	order       []string
	subscribers map[chan status.AppStatus]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new, empty in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]status.AppStatus),
		subscribers: make(map[chan status.AppStatus]struct{}),
	}
}

// newMemoryStoreFrom hydrates a MemoryStore from a snapshot. Snapshot keys
// carry no order, so applications are listed alphabetically until new ones
// are appended.
func newMemoryStoreFrom(snap Snapshot) *MemoryStore {
	m := NewMemoryStore()
	for name, st := range snap {
		m.statuses[name] = st
		m.order = append(m.order, name)
	}
	sort.Strings(m.order)
	return m
}

// ListApplications returns the known application names in first-report order.
//
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) ListApplications() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// GetStatus returns the current status for appName.
func (m *MemoryStore) GetStatus(appName string) (status.AppStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.statuses[appName]
	return st, ok
}

// All returns a snapshot of all currently stored statuses in listing order.
//
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) All() []status.AppStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]status.AppStatus, 0, len(m.order))
	for _, name := range m.order {
		results = append(results, m.statuses[name])
	}
	return results
}

// UpdateStatus stores candidate if it wins the last-write-wins comparison
// and notifies all subscribers of the accepted status.
//
// A candidate whose timestamp equals the stored timestamp loses: the first
// status applied for a given instant is kept. UpdateStatus never fails.
func (m *MemoryStore) UpdateStatus(_ context.Context, appName string, candidate status.AppStatus) error {
	m.mu.Lock()
	accepted := m.applyLocked(appName, candidate)
	m.mu.Unlock()

	if accepted {
		m.notifySubscribers(candidate)
	}
	return nil
}

// Snapshot returns a copy of the stored mapping.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(Snapshot, len(m.statuses))
	for name, st := range m.statuses {
		snap[name] = st
	}
	return snap
}

// accepts reports whether candidate would replace the stored status.
func (m *MemoryStore) accepts(appName string, candidate status.AppStatus) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing, ok := m.statuses[appName]
	return !ok || candidate.NewerThan(existing)
}

// applyLocked performs the read-compare-write. Caller must hold m.mu.
func (m *MemoryStore) applyLocked(appName string, candidate status.AppStatus) bool {
	existing, ok := m.statuses[appName]
	if ok && !candidate.NewerThan(existing) {
		return false
	}
	if !ok {
		m.order = append(m.order, appName)
	}
	m.statuses[appName] = candidate
	return true
}

// Subscribe creates a new subscription and returns a channel for receiving
// accepted statuses.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan status.AppStatus {
	ch := make(chan status.AppStatus, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan status.AppStatus) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the status to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the update path.
func (m *MemoryStore) notifySubscribers(st status.AppStatus) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- st:
		default:
			// subscriber is slow, drop the message
		}
	}
}
