package mailsim

import (
	"errors"
	"fmt"
)

// Common service errors. Use errors.Is for detection; errors returned
// by operations may wrap these sentinels with additional context.
var (
	// ErrStoreRequired is returned by NewService when no store is configured.
	ErrStoreRequired = errors.New("mailsim: store is required")

	// ErrNotConnected is returned when an operation is attempted before Connect.
	ErrNotConnected = errors.New("mailsim: service not connected")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("mailsim: service already connected")

	// ErrUserNotFound is returned when an operation targets an unknown
	// user id. Unlike missing messages or drafts, a missing user is
	// always a hard error.
	ErrUserNotFound = errors.New("mailsim: user not found")

	// ErrUserExists is returned by CreateUser for a taken user id.
	ErrUserExists = errors.New("mailsim: user already exists")

	// ErrInvalidInput is the root of all validation failures.
	ErrInvalidInput = errors.New("mailsim: invalid input")
)

// ValidationError reports a missing or malformed field on a request.
// It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mailsim: validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// EventPublishError reports that an operation succeeded but its event
// could not be published. Returned only when WithEventErrorsFatal is set.
type EventPublishError struct {
	Event string
	Err   error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("mailsim: operation succeeded but %s event publish failed: %v", e.Event, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}
