package status

import (
	"fmt"
	"time"
)

const (
	// Offline is the reserved status value an application reports when it
	// shuts down deliberately. It is compared by exact match.
	Offline = "offline"

	// DefaultStatus is assigned to a new application that reports without
	// supplying a status.
	DefaultStatus = "online"

	// DefaultExpiry is assigned to a new application that reports without
	// supplying an expiry period.
	DefaultExpiry = 5 * time.Minute
)

// AppStatus is the most recent status reported by one application.
//
// AppStatus is immutable after creation via [New]. A later report produces
// a new value rather than modifying an existing one, so values can be
// shared freely between goroutines.
type AppStatus struct {
	appName   string
	status    string
	timestamp time.Time
	expiry    time.Duration
}

// New creates an [AppStatus].
//
// No validation is performed here; callers reject malformed input before
// construction.
func New(appName, status string, timestamp time.Time, expiry time.Duration) AppStatus {
	return AppStatus{
		appName:   appName,
		status:    status,
		timestamp: timestamp,
		expiry:    expiry,
	}
}

// AppName returns the name of the application this status belongs to.
func (s AppStatus) AppName() string {
	return s.appName
}

// Status returns the free-form status string the application reported.
func (s AppStatus) Status() string {
	return s.status
}

// Timestamp returns the time the status was recorded.
func (s AppStatus) Timestamp() time.Time {
	return s.timestamp
}

// Expiry returns how long after Timestamp the application is still
// considered alive.
func (s AppStatus) Expiry() time.Duration {
	return s.expiry
}

// ExpiresAt returns the instant after which the status is expired.
func (s AppStatus) ExpiresAt() time.Time {
	return s.timestamp.Add(s.expiry)
}

// IsOffline reports whether the application explicitly reported [Offline].
func (s AppStatus) IsOffline() bool {
	return s.status == Offline
}

// IsExpired reports whether now is strictly after [AppStatus.ExpiresAt].
// The instant of expiry itself still counts as alive.
func (s AppStatus) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// NewerThan reports whether s was recorded strictly after other.
// Equal timestamps are not newer, so the incumbent of a tie is kept.
func (s AppStatus) NewerThan(other AppStatus) bool {
	return s.timestamp.After(other.timestamp)
}

// Describe returns a human-readable summary for diagnostic display.
func (s AppStatus) Describe() string {
	return fmt.Sprintf(
		"App %q last reported status as %q at %s. It has an expiry period of %s. It will expire at %s.",
		s.appName,
		s.status,
		FormatTimestamp(s.timestamp),
		FormatExpiry(s.expiry),
		FormatTimestamp(s.ExpiresAt()),
	)
}

// String implements fmt.Stringer using [AppStatus.Describe].
func (s AppStatus) String() string {
	return s.Describe()
}
