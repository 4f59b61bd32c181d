// Package utils provides logging and error handling utilities
// shared across the extraction engine.
package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// FailureMode describes how callers should react to an error.
type FailureMode int

const (
	// FailureHard aborts the operation and surfaces the error.
	FailureHard FailureMode = iota
	// FailureSoft returns whatever partial work exists.
	FailureSoft
	// FailureSilent falls through to the next strategy without noise.
	FailureSilent
	// FailureSkip drops the offending item and continues.
	FailureSkip
)

// String returns string representation of a failure mode
func (m FailureMode) String() string {
	switch m {
	case FailureHard:
		return "HARD"
	case FailureSoft:
		return "SOFT"
	case FailureSilent:
		return "SILENT"
	case FailureSkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Extraction related errors
	ErrCodeNoDataFound   ErrorCode = "NO_DATA_FOUND"
	ErrCodeSoftTimeout   ErrorCode = "SOFT_TIMEOUT"
	ErrCodeMalformedNode ErrorCode = "MALFORMED_NODE"
	ErrCodeParsingError  ErrorCode = "PARSING_ERROR"

	// Selector cache related errors
	ErrCodeCacheMiss  ErrorCode = "CACHE_MISS"
	ErrCodeCacheStale ErrorCode = "CACHE_STALE"

	// Persistence related errors
	ErrCodeStoreError   ErrorCode = "STORE_ERROR"
	ErrCodeOutputFailed ErrorCode = "OUTPUT_FAILED"

	// Browser related errors
	ErrCodeBrowserFailed ErrorCode = "BROWSER_FAILED"

	// Configuration and input errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"

	// Generic errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// failureModes maps each code onto the reaction callers should take.
var failureModes = map[ErrorCode]FailureMode{
	ErrCodeNoDataFound:   FailureHard,
	ErrCodeSoftTimeout:   FailureSoft,
	ErrCodeMalformedNode: FailureSkip,
	ErrCodeParsingError:  FailureHard,
	ErrCodeCacheMiss:     FailureSilent,
	ErrCodeCacheStale:    FailureSilent,
	ErrCodeStoreError:    FailureSoft,
	ErrCodeOutputFailed:  FailureHard,
	ErrCodeBrowserFailed: FailureSoft,
	ErrCodeInvalidConfig: FailureHard,
	ErrCodeInvalidInput:  FailureHard,
	ErrCodeInternal:      FailureHard,
}

// StructuredError provides rich error information for better debugging and handling
type StructuredError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Mode      FailureMode            `json:"mode"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"` // Original error
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target error code
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable
func (e *StructuredError) WithRetryable(retryable bool) *StructuredError {
	e.Retryable = retryable
	return e
}

// NewError creates a structured error with the failure mode implied by its code.
func NewError(code ErrorCode, message string) *StructuredError {
	mode, ok := failureModes[code]
	if !ok {
		mode = FailureHard
	}

	severity := SeverityError
	switch mode {
	case FailureSilent:
		severity = SeverityInfo
	case FailureSkip, FailureSoft:
		severity = SeverityWarning
	}

	return &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Mode:      mode,
		Timestamp: time.Now(),
		Retryable: mode == FailureSoft,
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *StructuredError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError wraps an existing error in a structured error
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	return NewError(code, message).WithCause(err)
}

// CodeOf extracts the error code from an error chain, or ErrCodeInternal
// when the chain carries no structured error.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether the error chain contains the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// ModeOf extracts the failure mode from an error chain. Plain errors
// are treated as hard failures.
func ModeOf(err error) FailureMode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Mode
	}
	return FailureHard
}

// IsSilent reports whether the error should fall through without noise.
func IsSilent(err error) bool {
	return ModeOf(err) == FailureSilent
}

// IsSoft reports whether partial results should be kept for this error.
func IsSoft(err error) bool {
	return ModeOf(err) == FailureSoft
}

// IsSkippable reports whether the offending item can be dropped.
func IsSkippable(err error) bool {
	return ModeOf(err) == FailureSkip
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
