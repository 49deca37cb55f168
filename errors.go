package codedoc

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These codes classify errors independently of their transport or storage
// origin. Retryability decisions (e.g., in the analysis scheduler) key off
// these codes rather than inspecting wrapped errors.
const (
	ECONFLICT    = "conflict"    // an action cannot be performed due to existing state
	EINTERNAL    = "internal"    // internal error, a bug if ever surfaced to a user
	EINVALID     = "invalid"     // validation failed, or the oracle rejected the input
	ENOTFOUND    = "not_found"   // entity does not exist
	ETIMEOUT     = "timeout"     // operation exceeded its deadline (retryable)
	EUNAVAILABLE = "unavailable" // external collaborator unreachable (retryable)
)

// Error represents an application-specific error. Application errors carry a
// machine-readable code and a human-readable message.
type Error struct {
	// Code is one of the application error codes above.
	Code string

	// Message is a human-readable description of the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("codedoc error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRetryable reports whether an error's code indicates a transient condition
// worth retrying. Timeouts and unreachable collaborators are retryable;
// everything else is terminal.
func IsRetryable(err error) bool {
	switch ErrorCode(err) {
	case ETIMEOUT, EUNAVAILABLE:
		return true
	}
	return false
}
