// Package apperror defines the error taxonomy shared by services and
// repositories. Handlers translate these kinds to HTTP status codes; the
// services themselves never see a status code.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Services wrap these via the constructors below so callers
// can branch with errors.Is while still getting a useful message.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrSelfReference = errors.New("self reference")
	ErrNotAllowed    = errors.New("not allowed")
	ErrMaxCapacity   = errors.New("max capacity")
	ErrValidation    = errors.New("validation failed")
	ErrTooLarge      = errors.New("too large")
	ErrUnauthorized  = errors.New("unauthorized")
)

// AppError carries a kind (Err), a human-readable message, and optionally the
// field that caused a validation failure.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// NotFound reports that a record of the given resource type is absent.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

// AlreadyExists reports a unique-key conflict (username, email, like edge).
func AlreadyExists(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrAlreadyExists,
		Message: fmt.Sprintf("%s already exists: %s", resource, detail),
	}
}

// SelfReference reports a self-like or self-message attempt.
func SelfReference(message string) *AppError {
	return &AppError{Err: ErrSelfReference, Message: message}
}

// NotAllowed reports an operation forbidden for the caller, e.g. messaging
// without a mutual match or deleting a message the caller is no party to.
func NotAllowed(message string) *AppError {
	return &AppError{Err: ErrNotAllowed, Message: message}
}

// MaxCapacity reports that a per-user quota is exhausted (photo cap).
func MaxCapacity(message string) *AppError {
	return &AppError{Err: ErrMaxCapacity, Message: message}
}

// Validation reports malformed input. Field may be empty.
func Validation(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// TooLarge reports an upload exceeding the configured size limit.
func TooLarge(message string) *AppError {
	return &AppError{Err: ErrTooLarge, Message: message}
}

// Unauthorized reports bad credentials or an invalid/expired token.
func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}
