package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeQuotaExceeded = "QUOTA_EXCEEDED"
	ErrCodeExternal      = "EXTERNAL_SERVICE_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodePayloadSize   = "PAYLOAD_TOO_LARGE"
)

// CadenceError is the structured error type for all cadence operations.
type CadenceError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CadenceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CadenceError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CadenceError.
func NewError(code, message string) *CadenceError {
	return &CadenceError{Code: code, Message: message}
}

// NewErrorf creates a new CadenceError with a formatted message.
func NewErrorf(code, format string, args ...any) *CadenceError {
	return &CadenceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *CadenceError) WithCause(err error) *CadenceError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CadenceError) WithDetails(details map[string]any) *CadenceError {
	e.Details = details
	return e
}

// StatusFor maps an error onto the HTTP-style status code used in the
// result envelope. Wrapped CadenceErrors are unwrapped; anything else is
// internal.
func StatusFor(err error) int {
	var cerr *CadenceError
	if !errors.As(err, &cerr) {
		return 500
	}
	switch cerr.Code {
	case ErrCodeValidation, ErrCodeConfiguration:
		return 400
	case ErrCodeNotFound:
		return 404
	case ErrCodeQuotaExceeded:
		return 429
	default:
		return 500
	}
}
