/*
errors.go - Storage error types

ERROR CATEGORIES:
  1. ErrNotFound     - Get/Update/Delete on a missing id
  2. StorageError    - Any failure of the underlying persistence call
  3. BatchWriteError - Failure while committing an atomic batch

  Both structured errors match errors.Is(err, ErrStorage). Callers treat a
  BatchWriteError exactly like a StorageError: nothing was committed.

SEE ALSO:
  - cleaning/errors.go: Domain error taxonomy wrapping these
*/
package docstore

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrStorage marks every failure of the persistence layer itself.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StorageError wraps a driver failure with the operation that caused it.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// BatchWriteError reports a failed atomic commit. Index is the position of
// the write that failed, or -1 when the commit itself failed.
type BatchWriteError struct {
	Writes int
	Index  int
	Err    error
}

func (e *BatchWriteError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("batch of %d writes failed: %v", e.Writes, e.Err)
	}
	return fmt.Sprintf("batch of %d writes failed at write %d: %v", e.Writes, e.Index, e.Err)
}

func (e *BatchWriteError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Wrap builds a StorageError unless err is nil or already ErrNotFound.
func Wrap(op, collection string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Collection: collection, Err: err}
}
