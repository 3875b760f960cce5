package store

import "errors"

// Common store errors. Implementations return these sentinel errors
// (possibly wrapped) so callers can use errors.Is for detection.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is returned when creating a record that already exists.
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrNotConnected is returned when an operation is attempted before Connect.
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrInvalidState is returned when Restore is given a nil or malformed snapshot.
	ErrInvalidState = errors.New("store: invalid state")
)

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
