// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer
// maps them to HTTP status codes and machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflicting concurrent write.
	KindConflict
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindInvalidTransition indicates a workflow edge that is not permitted.
	KindInvalidTransition
	// KindInvalidSchedule indicates a malformed or non-future schedule.
	KindInvalidSchedule
	// KindNotDue indicates the retry window has not elapsed yet.
	KindNotDue
	// KindDispatchFailure indicates notification delivery failed.
	KindDispatchFailure
)

var kindCodes = map[Kind]string{
	KindUnknown:           "unknown",
	KindNotFound:          "not_found",
	KindValidation:        "validation",
	KindConflict:          "conflict",
	KindUnauthorized:      "unauthorized",
	KindInternal:          "internal",
	KindInvalidTransition: "invalid_transition",
	KindInvalidSchedule:   "invalid_schedule",
	KindNotDue:            "not_due",
	KindDispatchFailure:   "dispatch_failure",
}

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidSchedule:
		return http.StatusUnprocessableEntity
	case KindNotDue:
		return http.StatusTooEarly
	case KindDispatchFailure:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation on the error and returns it.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details on the error and returns it.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// InvalidTransition creates an invalid workflow transition error.
func InvalidTransition(message string) *Error {
	return New(KindInvalidTransition, message)
}

// InvalidSchedule creates an invalid schedule error.
func InvalidSchedule(message string) *Error {
	return New(KindInvalidSchedule, message)
}

// NotDue creates a retry-window-not-elapsed error.
func NotDue(message string) *Error {
	return New(KindNotDue, message)
}

// DispatchFailure wraps a notification delivery error.
func DispatchFailure(message string, err error) *Error {
	return Wrap(KindDispatchFailure, message, err)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
