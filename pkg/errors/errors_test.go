package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "line %d: missing ':'", 3)

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}
	if err.Message != "line 3: missing ':'" {
		t.Errorf("Message = %q", err.Message)
	}
	if want := "INVALID_INPUT: line 3: missing ':'"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeNetwork, cause, "fetch library")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() should return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if want := "NETWORK_ERROR: fetch library: connection reset"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching", New(ErrCodeNoAccounts, "x"), ErrCodeNoAccounts, true},
		{"non-matching", New(ErrCodeNoAccounts, "x"), ErrCodeNoItems, false},
		{"outer wins", Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeNetwork, true},
		{"fmt wrapped", fmt.Errorf("run: %w", New(ErrCodeNoItems, "empty")), ErrCodeNoItems, true},
		{"plain", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil", nil, ErrCodeInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"Error type", New(ErrCodeAccountFetch, "x"), ErrCodeAccountFetch},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeNoItems, "No games found across provided accounts.")); got != "No games found across provided accounts." {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"invalid input", New(ErrCodeInvalidInput, "x"), 2},
		{"invalid config", New(ErrCodeInvalidConfig, "x"), 2},
		{"no accounts", New(ErrCodeNoAccounts, "x"), 3},
		{"no items", New(ErrCodeNoItems, "x"), 3},
		{"network", New(ErrCodeNetwork, "x"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitedError{Status: 429, RetryAfter: 60}
		if want := "rate limited (HTTP 429): retry after 60 seconds"; err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
	t.Run("without retry after", func(t *testing.T) {
		err := &RateLimitedError{Status: 503}
		if want := "rate limited (HTTP 503)"; err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
	t.Run("code", func(t *testing.T) {
		if (&RateLimitedError{}).Code() != ErrCodeRateLimited {
			t.Error("Code() should be RATE_LIMITED")
		}
	})
}
