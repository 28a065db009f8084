// Package apperror defines the error kinds shared by every layer of Weatherly.
//
// ERROR TAXONOMY:
// Every failure a user can see falls into one of a handful of kinds:
//
//	ErrValidation   → empty fields, mismatched passwords, bad unit values
//	ErrConflict     → a username that is already taken
//	ErrUnauthorized → bad credentials, or no active session
//	ErrForbidden    → role or policy checks (e.g. deleting the seed admin)
//	ErrNotFound     → missing rows, unknown cities
//	ErrUpstream     → the weather service could not be reached
//
// Services return *AppError values wrapping one of these sentinels. The view
// layer uses errors.Is to pick a status code and shows Message inline.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UsernameTaken is the conflict returned when registration hits an existing
// account. The stored row is never modified.
func UsernameTaken() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "username already taken",
		Field:   "username",
	}
}

// InvalidCredentials is the single error for every failed login. It carries
// no hint about whether the username exists.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid username or password",
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Upstream wraps a failure talking to the remote weather service. The cause
// is kept for logs; the message is what the user sees.
func Upstream(message string, cause error) *AppError {
	err := ErrUpstream
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUpstream, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}
