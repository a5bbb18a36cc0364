package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	// ErrNotFound reports a key or document that is absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports malformed content (registry, conversation, ...).
	ErrValidation = errors.New("validation error")
	// ErrTransient reports a network failure or timeout against an external service.
	ErrTransient = errors.New("transient I/O error")
	// ErrReadOnly is returned by stores that cannot pass through mutations.
	ErrReadOnly = errors.New("store is read-only")
)

// NotFoundError is returned when a key cannot be resolved. AvailableKeys lists
// every key the store exposed so the caller can diagnose the mismatch. When the
// store itself could not be reached, Cause holds the underlying failure and
// AvailableKeys is empty.
type NotFoundError struct {
	Key           string
	AvailableKeys []string
	Cause         error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("key %q not found: %v", e.Key, e.Cause)
	}
	if len(e.AvailableKeys) == 0 {
		return fmt.Sprintf("key %q not found: store is empty", e.Key)
	}
	return fmt.Sprintf("key %q not found (available: %s)", e.Key, strings.Join(e.AvailableKeys, ", "))
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Unwrap exposes the store failure, if any.
func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
