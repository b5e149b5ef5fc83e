package services

import (
	"errors"
	"fmt"

	"github.com/geijin5/apsar-emergency-api/databases"
)

// Kind classifies a failed operation. Each kind maps to one HTTP status at the gateway.
type Kind string

// Error kinds
const (
	KindUnauthorized      Kind = "Unauthorized"
	KindForbidden         Kind = "Forbidden"
	KindNotFound          Kind = "NotFound"
	KindInvalidState      Kind = "InvalidState"
	KindInvalidTransition Kind = "InvalidTransition"
	KindConflict          Kind = "Conflict"
	KindValidation        Kind = "ValidationError"
	KindInternal          Kind = "Internal"
	KindCallOutClosed     Kind = "CallOutClosed"
	KindIncidentClosed    Kind = "IncidentClosed"
	KindMissionClosed     Kind = "MissionClosed"
)

// Error is the error type returned by every service operation
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports an authenticated caller without the required role or ownership
func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

// NotFound reports a missing entity
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// InvalidState reports an operation that is not legal in the entity's current state
func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// InvalidTransition reports a status change along an edge the state machine does not have
func InvalidTransition(format string, args ...interface{}) *Error {
	return newError(KindInvalidTransition, format, args...)
}

// Conflict reports a concurrent write that won against this one
func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// Validation reports malformed or missing input
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// Internal wraps an unexpected failure
func Internal(err error, format string, args ...interface{}) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, or Internal for errors not produced by this package
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeErr translates a store failure into a service error
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, databases.ErrNotFound):
		return NotFound("%s not found", what)
	case errors.Is(err, databases.ErrConditionFailed):
		return Conflict("%s was modified concurrently", what)
	case errors.Is(err, databases.ErrDuplicate):
		return Conflict("%s already exists", what)
	}
	return Internal(err, "failed to access %s", what)
}
