package status

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// naiveLayout matches timestamps written without a zone offset, as
// produced by Python's datetime.isoformat() on naive datetimes.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// ParseExpiry parses an ISO-8601 duration such as "PT5M" or "P1DT2H".
//
// Negative durations are rejected: an expiry period must be zero or more.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("expiry period is empty")
	}
	if !strings.ContainsAny(s, "0123456789") {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q: no components", s)
	}

	parsed, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
	}

	d := parsed.ToTimeDuration()
	if d < 0 {
		return 0, fmt.Errorf("expiry period cannot be negative, got %q", s)
	}
	return d, nil
}

// FormatExpiry renders d as an ISO-8601 duration. Zero renders as "PT0S".
func FormatExpiry(d time.Duration) string {
	return duration.Format(d)
}

// ParseTimestamp parses an ISO-8601 timestamp.
//
// RFC 3339 (with optional fractional seconds) is preferred. Timestamps
// without a zone offset are accepted and interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
	}
	return t, nil
}

// FormatTimestamp renders t as RFC 3339 with nanosecond precision.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
