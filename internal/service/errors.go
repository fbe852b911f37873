package service

import (
	"errors"
	"fmt"
)

// Reason explains why an application is unavailable.
type Reason string

const (
	// ReasonOffline means the application reported the offline status.
	ReasonOffline Reason = "offline"

	// ReasonExpired means the expiry period elapsed without a new report.
	ReasonExpired Reason = "expired"
)

var (
	// ErrNotFound is returned by Check for applications that never reported.
	ErrNotFound = errors.New("application not found")

	// ErrUnavailable matches every [UnavailableError] via errors.Is.
	ErrUnavailable = errors.New("application unavailable")

	// ErrValidation matches every [ValidationError] via errors.Is.
	ErrValidation = errors.New("invalid report")
)

// ValidationError rejects malformed report input. No state was changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnavailableError reports that an application is known but not alive.
type UnavailableError struct {
	AppName string
	Reason  Reason
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("application %q is unavailable: %s", e.AppName, e.Reason)
}

// Is makes errors.Is(err, ErrUnavailable) true for any UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Description returns the human-readable explanation shown to observers.
func (e *UnavailableError) Description() string {
	switch e.Reason {
	case ReasonOffline:
		return "This application has reported an offline status"
	case ReasonExpired:
		return "Heartbeat for this application has expired"
	default:
		return e.Error()
	}
}
