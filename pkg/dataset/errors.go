package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Source when the remote blob does not
// exist. Preload surfaces it wrapped in a *FetchError.
var ErrNotFound = errors.New("dataset: not found")

// FetchError reports a failed interaction with the external source.
// Fetch failures are recoverable: batch handles expose Reload, and a
// later Preload for the key re-attempts once the request cache's failure
// window has passed.
type FetchError struct {
	Key Key
	Op  string // "fetch" or "write"
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("dataset: %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying source error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// BatchError aggregates a batch preload's failures while still naming the
// keys that succeeded, so callers can render partial data.
type BatchError struct {
	Failed    []*FetchError
	Succeeded []Key
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = f.Key.String()
	}
	return fmt.Sprintf("dataset: preload failed for %d of %d keys: %s",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(names, ", "))
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}
