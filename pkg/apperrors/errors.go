package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds used across the API. Handlers map these onto HTTP status
// codes; everything else surfaces as a generic upstream failure.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindPrecondition
	KindUpstream
)

// Error carries a kind plus a caller-facing message. Field is set for
// validation failures that can be attributed to a single input field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a field-level validation error
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFound creates a not-found error for the named resource
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s '%s' not found", resource, id)}
}

// Precondition creates an error for requests valid in shape but
// forbidden by current system state
func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

// Upstream wraps a storage or network failure
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindUpstream for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUpstream
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }
