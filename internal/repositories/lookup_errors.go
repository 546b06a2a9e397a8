package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("repository: not found")

// NotFoundError reports a reference entry missing from a read-only store.
type NotFoundError struct {
	Kind string
	Key  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsNotFound implements RepositoryError.
func (e *NotFoundError) IsNotFound() bool { return true }

// IsUnavailable implements RepositoryError.
func (e *NotFoundError) IsUnavailable() bool { return false }
