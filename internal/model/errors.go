package model

import "errors"

// Error kinds shared by the API and realtime layers. Storage failures use the
// kinds in the store package.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// Error is an error with a client-facing message and a kind.
type Error struct {
	Kind    error
	Message string
	Field   string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns a validation error with the given message.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

// FieldValidation returns a validation error tied to a request field.
func FieldValidation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Field: field}
}

// Unauthenticated returns an authentication error.
func Unauthenticated(message string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: message}
}

// Forbidden returns an authorization error.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NotFound returns a not-found error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: resource + " not found"}
}
