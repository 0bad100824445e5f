package store

import (
	"errors"
	"fmt"
)

// ErrStoreClosed is returned by Read and Write after Destroy. Operations
// on a destroyed store fail loudly to surface dangling references instead
// of silently succeeding.
var ErrStoreClosed = errors.New("store: store is closed")

// ErrNotInitialized is returned by the package-level accessors when no
// process-wide store lifecycle is active.
var ErrNotInitialized = errors.New("store: not initialized; call Initialize first")

// DecodeError reports that a typed read found bytes that do not match the
// expected codec. It is fatal to that read and never retried.
type DecodeError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("store: decode %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying codec error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
