/*
errors.go - Error taxonomy of the cleaning domain

ERROR CATEGORIES:
  1. NotFound        - A referenced id does not resolve
  2. ValidationError - Rejected before any write; nothing persisted
  3. Unauthorized    - Verified identity without a stored profile
  4. Storage errors  - docstore.StorageError / BatchWriteError, passed
                       through unmodified (errors.Is(err, docstore.ErrStorage))

  Joins in the reporting path never return NotFound; they substitute a
  placeholder label instead.

SEE ALSO:
  - docstore/errors.go: Storage-level errors
  - api/handlers.go: HTTP status mapping
*/
package cleaning

import (
	"errors"
	"fmt"

	"github.com/alexisbanda/operations-management-system/docstore"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an entity, job or profile id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a request is rejected before any write.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when a verified identity has no profile.
	// The session has already been terminated when this is returned.
	ErrUnauthorized = errors.New("authenticated identity has no profile")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFound converts a store miss into a NotFoundError; other errors pass.
func notFound(kind, id string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, docstore.ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}
