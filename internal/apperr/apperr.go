// Package apperr defines the error taxonomy shared by the auth services and the HTTP layer.
// Services return *Error values (or wrap them); handlers and middleware convert any error
// to the JSON envelope with Write.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of transport.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindProvider        Kind = "provider"
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal"
)

// InternalMessage is the only message clients see for internal failures.
const InternalMessage = "An unexpected error occurred"

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed application error.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind and Message so package-level sentinels work with errors.Is
// even after WithCause produced a copy.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithCause returns a copy of e carrying cause. Sentinels stay untouched.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Unauthenticated is a 401 failure: credentials missing, wrong, expired or revoked.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Status: http.StatusUnauthorized}
}

// Forbidden is a 403 failure: the caller is known but not allowed.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, Status: http.StatusForbidden}
}

// Provider is a 401 failure reported by the external identity provider.
func Provider(message string) *Error {
	return &Error{Kind: KindProvider, Message: message, Status: http.StatusUnauthorized}
}

// ProviderUnavailable is a 502 failure: the external identity provider could not be reached.
func ProviderUnavailable(message string) *Error {
	return &Error{Kind: KindProvider, Message: message, Status: http.StatusBadGateway}
}

// Validation is a 400 failure carrying optional per-field details.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Status: http.StatusBadRequest, Fields: fields}
}

// Conflict is a 409 failure.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Status: http.StatusConflict}
}

// NotFound is a 404 failure.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Status: http.StatusNotFound}
}

// RateLimited is a 429 failure.
func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "Too many requests", Status: http.StatusTooManyRequests}
}

// Internal wraps an unexpected failure. The cause is logged, never sent to clients.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Status: http.StatusInternalServerError, Cause: cause}
}

// As extracts an *Error from err. Untyped errors become Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
