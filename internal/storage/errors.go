package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrLockPoisoned is returned when a previous holder of the shared lock
	// panicked. The backend contents are no longer trusted.
	ErrLockPoisoned = errors.New("lock poisoned")

	// ErrKeyNotFound is returned by backends that treat a missing key as an error.
	ErrKeyNotFound = errors.New("key not found")
)

// LockError reports a failed lock acquisition on a shared store.
type LockError struct {
	Op  string // Operation that tried to take the lock
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%s: acquire lock: %v", e.Op, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}
