package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSnapshot is returned by [Backend.Load] when no snapshot has ever
	// been saved. It is the only load failure that starts an empty store.
	ErrNoSnapshot = errors.New("no snapshot")

	// ErrCorruptSnapshot indicates a snapshot exists but cannot be decoded.
	// Startup must abort rather than treat the data as absent.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrPersist matches every [PersistError] via errors.Is.
	ErrPersist = errors.New("persist failed")
)

// PersistError reports that an accepted status could not be written to the
// backend. The status was not applied and the report is not acknowledged.
type PersistError struct {
	AppName string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist status for %q: %v", e.AppName, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersist) true for any PersistError.
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}
