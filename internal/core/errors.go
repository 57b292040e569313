// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Predefined errors
var (
	// Input errors. Fatal for the asset being processed.
	ErrInvalidInput      = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrMalformedSnapshot = &Error{Code: "MALFORMED_SNAPSHOT", Message: "macro snapshot is malformed"}

	// Recoverable errors. The asset is skipped or the factor contributes zero.
	ErrMissingReferenceData = &Error{Code: "MISSING_REFERENCE_DATA", Message: "reference data not found"}
	ErrConstraintViolation  = &Error{Code: "CONSTRAINT_VIOLATION", Message: "position does not fit within limits"}
	ErrNonConvergence       = &Error{Code: "NUMERICAL_NON_CONVERGENCE", Message: "solver did not converge"}

	// Lookup errors
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "resource not found"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
