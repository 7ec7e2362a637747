// Package linkerr is the error taxonomy for record-linkage operations.
//
// Callers branch on Kind rather than on message text so that "the operation
// failed validation" is never confused with "there was nothing to operate on".
package linkerr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies an error
type Kind string

const (
	// KindValidation is a rejected precondition. Nothing was written.
	KindValidation Kind = "validation"
	// KindNotFound means a referenced subject, orphan or record does not exist. Nothing was written.
	KindNotFound Kind = "not_found"
	// KindConflict means the target is in a state that forbids the operation (e.g. already merged).
	KindConflict Kind = "conflict"
	// KindMutationFailure means persistence failed mid-operation and the unit was rolled back.
	KindMutationFailure Kind = "mutation_failure"
)

// Error is a classified error carrying the operation that produced it
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, linkerr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrMutationFailure = &Error{Kind: KindMutationFailure}
)

// Validation returns a validation error
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for a named resource
func NotFound(op, resource, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// Conflict returns a state conflict error
func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// MutationFailure wraps a persistence failure
func MutationFailure(op string, err error) *Error {
	return &Error{Kind: KindMutationFailure, Op: op, Message: "mutation rolled back", Err: err}
}

// KindOf returns the kind of a classified error, or "" for anything else
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsMutationFailure reports whether err is a mutation failure
func IsMutationFailure(err error) bool { return KindOf(err) == KindMutationFailure }

// ToHTTPError converts a classified error into the http error the routes return
func ToHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if httperror.IsHTTPError(err) {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return httperror.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	switch e.Kind {
	case KindValidation:
		return httperror.NewHTTPError(http.StatusBadRequest, e.Message)
	case KindNotFound:
		return httperror.NewHTTPError(http.StatusNotFound, e.Message)
	case KindConflict:
		return httperror.NewHTTPError(http.StatusConflict, e.Message)
	default:
		return httperror.NewHTTPError(http.StatusInternalServerError, "mutation failed and was rolled back")
	}
}
