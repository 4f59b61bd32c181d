package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewErrorAssignsFailureMode(t *testing.T) {
	testCases := []struct {
		code ErrorCode
		mode FailureMode
	}{
		{ErrCodeNoDataFound, FailureHard},
		{ErrCodeSoftTimeout, FailureSoft},
		{ErrCodeCacheMiss, FailureSilent},
		{ErrCodeCacheStale, FailureSilent},
		{ErrCodeMalformedNode, FailureSkip},
		{ErrCodeInvalidInput, FailureHard},
	}

	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			err := NewError(tc.code, "test")
			if err.Mode != tc.mode {
				t.Errorf("NewError(%s).Mode = %s, want %s", tc.code, err.Mode, tc.mode)
			}
		})
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := NewError(ErrCodeNoDataFound, "no repeating structure produced records")
	wrapped := fmt.Errorf("extraction failed: %w", inner)

	if !HasCode(wrapped, ErrCodeNoDataFound) {
		t.Error("expected HasCode to find NO_DATA_FOUND through wrapping")
	}
	if HasCode(wrapped, ErrCodeSoftTimeout) {
		t.Error("did not expect SOFT_TIMEOUT in chain")
	}
}

func TestModeHelpers(t *testing.T) {
	if !IsSilent(NewError(ErrCodeCacheMiss, "no cached selectors")) {
		t.Error("cache miss should be silent")
	}
	if !IsSoft(NewError(ErrCodeSoftTimeout, "budget exhausted")) {
		t.Error("soft timeout should be soft")
	}
	if !IsSkippable(NewError(ErrCodeMalformedNode, "bad node")) {
		t.Error("malformed node should be skippable")
	}
	if !errors.Is(NewError(ErrCodeStoreError, "a"), NewError(ErrCodeStoreError, "b")) {
		t.Error("errors with the same code should match via errors.Is")
	}
	if ModeOf(errors.New("plain")) != FailureHard {
		t.Error("plain errors should default to hard failures")
	}
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(cause, ErrCodeStoreError, "persist failed")

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if CodeOf(err) != ErrCodeStoreError {
		t.Errorf("CodeOf = %s, want STORE_ERROR", CodeOf(err))
	}
}
