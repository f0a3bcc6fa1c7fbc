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

// Predefined errors
var (
	// Data errors. ErrSymbolNotFound and ErrInsufficientData are reported wrapped in
	// ErrDataUnavailable so a single errors.Is check covers every skipped cycle.
	ErrDataUnavailable  = &Error{Code: "DATA_UNAVAILABLE", Message: "market data unavailable"}
	ErrSymbolNotFound   = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}

	// Broker errors
	ErrPositionUnavailable = &Error{Code: "POSITION_UNAVAILABLE", Message: "position lookup failed"}
	ErrOrderRejected       = &Error{Code: "ORDER_REJECTED", Message: "order rejected"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)

// DataUnavailable wraps cause in ErrDataUnavailable.
func DataUnavailable(cause error) *Error {
	return WrapError(ErrDataUnavailable, cause)
}
