package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrOrderRejected, errors.New("insufficient buying power"))
	want := "[ORDER_REJECTED] order rejected: insufficient buying power"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrSymbolNotFound, ErrSymbolNotFound) {
		t.Error("same error should match")
	}
	if errors.Is(ErrSymbolNotFound, ErrOrderRejected) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrPositionUnavailable, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrPositionUnavailable.Code {
		t.Error("code not preserved")
	}
}

func TestDataUnavailable_MatchesNestedCodes(t *testing.T) {
	err := fmt.Errorf("cycle: %w", DataUnavailable(WrapError(ErrInsufficientData, errors.New("12 of 30 bars"))))

	if !errors.Is(err, ErrDataUnavailable) {
		t.Error("expected DATA_UNAVAILABLE to match")
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("expected nested INSUFFICIENT_DATA to match")
	}
	if errors.Is(err, ErrSymbolNotFound) {
		t.Error("SYMBOL_NOT_FOUND should not match")
	}
}
