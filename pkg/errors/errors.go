// Package errors provides structured error types for steamfam.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP server can
// map failures to exit codes, status codes, and user-facing messages without
// string matching.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "line %d: missing ':'", n)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // skip the line
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Input
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidAccount Code = "INVALID_ACCOUNT"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resolution and fetching
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeUnresolvable     Code = "UNRESOLVABLE_IDENTITY"
	ErrCodeLibraryHidden    Code = "LIBRARY_HIDDEN"
	ErrCodeNoAccounts       Code = "NO_ACCOUNTS"
	ErrCodeNoItems          Code = "NO_ITEMS"
	ErrCodeAccountFetch     Code = "ACCOUNT_FETCH_FAILED"
	ErrCodeEnrichmentFailed Code = "ENRICHMENT_FAILED"

	// Network
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Internal
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix for *Error values
// and err.Error() for everything else.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch GetCode(err) {
	case "":
		if err == nil {
			return 0
		}
		return 1
	case ErrCodeInvalidInput, ErrCodeInvalidAccount, ErrCodeInvalidFormat, ErrCodeInvalidConfig:
		return 2
	case ErrCodeNoAccounts, ErrCodeNoItems:
		return 3
	default:
		return 1
	}
}

// RateLimitedError reports a 429 or 503 response from an upstream.
type RateLimitedError struct {
	Status     int
	RetryAfter int // seconds, 0 if the upstream did not say
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (HTTP %d): retry after %d seconds", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (HTTP %d)", e.Status)
}

// Code returns [ErrCodeRateLimited].
func (e *RateLimitedError) Code() Code { return ErrCodeRateLimited }
