// Package domainerrors classifies errors raised by domain and service code.
//
// Services and aggregates return these instead of transport errors so the
// HTTP layer can map codes to statuses in one place. Infra layers return
// pkg/platform/sentinel errors and services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code labels the class of a domain error.
type Code string

const (
	// CodeInvalidInput marks malformed external input rejected at a trust
	// boundary (bad UUID, unknown enum value).
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks a request that parsed but failed validation rules.
	CodeValidation Code = "validation"
	// CodeBadRequest marks an unreadable or structurally invalid request body.
	CodeBadRequest Code = "bad_request"
	// CodeInvariantViolation marks an aggregate invariant or illegal state
	// transition. The operation was refused and no state was mutated.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound marks a missing entity, including children addressed
	// through their owning aggregate.
	CodeNotFound Code = "not_found"
	// CodeConflict marks concurrent-modification and uniqueness conflicts.
	// Conflicts are retryable after reloading.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller lacking permission.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks an operation abandoned due to deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a code-classified error with an optional structured payload.
type Error struct {
	Code    Code
	Message string
	// Details carries machine-readable context for the caller, e.g. the
	// readiness-gate breakdown attached to a refused filing attempt.
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a domain code. The cause stays
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetails returns a copy of the error carrying the given payload.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DetailsOf returns the structured payload of err, or nil.
func DetailsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}
