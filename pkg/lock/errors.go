package lock

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotOwner is returned when an owner releases a lock it does not hold.
	ErrNotOwner = errors.New("lock not held by owner")
	// ErrTimedOut is returned when Acquire exceeds its deadline.
	ErrTimedOut = errors.New("timed out acquiring lock")
	// ErrCancelled is returned when Acquire is cancelled before the lock is granted.
	ErrCancelled = errors.New("lock acquisition cancelled")
	// ErrReentrantWaitConflict is returned when an owner that is already waiting on a lock calls Acquire again.
	ErrReentrantWaitConflict = errors.New("owner is already waiting on lock")
	// ErrDeadlockDetected is returned when the owner of a non-reentrant lock tries to acquire it again.
	ErrDeadlockDetected = errors.New("deadlock detected: owner already holds non-reentrant lock")
	ErrInvalidOwner     = errors.New("invalid lock owner")
)

// AcquireError maps the error of a done context to the matching acquisition error.
func AcquireError(key string, ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w %s: %w", ErrTimedOut, key, ctxErr)
	}
	return fmt.Errorf("%w %s: %w", ErrCancelled, key, ctxErr)
}

// IsRecoverable reports whether err is an expected acquisition failure the caller may retry.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTimedOut) || errors.Is(err, ErrCancelled)
}
