package store

import (
	"context"

	"github.com/jpalmerr/heartbeat/internal/status"
)

// Store defines the interface for storing and subscribing to application
// statuses.
//
// Store implementations must be safe for concurrent access. UpdateStatus
// must perform its read-compare-write atomically so that concurrent reports
// for the same application cannot let a stale status win.
type Store interface {
	// ListApplications returns the names of all known applications in the
	// order they first reported.
	ListApplications() []string

	// GetStatus returns the current status for appName. The boolean is false
	// if the application has never reported.
	GetStatus(appName string) (status.AppStatus, bool)

	// All returns the current status of every application, in the same
	// order as ListApplications.
	All() []status.AppStatus

	// UpdateStatus stores candidate for appName if the application is new
	// or candidate is strictly newer than the stored status. Otherwise it
	// is a no-op. Implementations that persist return an error when the
	// accepted status could not be made durable.
	UpdateStatus(ctx context.Context, appName string, candidate status.AppStatus) error

	// Subscribe returns a channel that receives accepted statuses.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan status.AppStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan status.AppStatus)
}
