package store

import "fmt"

// StorageError wraps a failure in the underlying database.
type StorageError struct {
	// Op is the operation that failed (open, flush, query, prune).
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("event store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// newStorageError creates a StorageError.
func newStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
