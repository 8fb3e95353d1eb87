package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorCode_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected int
	}{
		{"ConfigNotFound", ErrConfigNotFound, 1},
		{"ConfigParse", ErrConfigParse, 1},
		{"ConfigInvalid", ErrConfigInvalid, 1},
		{"GitCommandFailed", ErrGitCommandFailed, 2},
		{"FileSystemError", ErrFileSystemError, 2},
		{"ProviderUnreachable", ErrProviderUnreachable, 3},
		{"ProviderRateLimited", ErrProviderRateLimited, 3},
		{"InvalidFormat", ErrInvalidFormat, 3},
		{"Cancelled", ErrCancelled, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %v, want %v", got, tt.expected)
			}
			if got := tt.code.String(); got != tt.name {
				t.Errorf("String() = %v, want %v", got, tt.name)
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      &AppError{Code: ErrConfigInvalid, Message: "bad temperature"},
			expected: "bad temperature",
		},
		{
			name: "with cause",
			err: &AppError{
				Code:    ErrGitCommandFailed,
				Message: "git command failed",
				Cause:   errors.New("exit status 1"),
			},
			expected: "git command failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected bool
	}{
		{"rate limited", ErrProviderRateLimited, true},
		{"timeout", ErrProviderTimeout, false},
		{"unreachable", ErrProviderUnreachable, false},
		{"unauthorized", ErrProviderUnauthorized, false},
		{"config parse", ErrConfigParse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &AppError{Code: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", NewRateLimitError("gemini", time.Second))

	if !HasCode(wrapped, ErrProviderRateLimited) {
		t.Error("HasCode should find the code through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, ErrProviderTimeout) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(errors.New("plain"), ErrProviderRateLimited) {
		t.Error("HasCode should be false for non-AppError")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	wrapped := Wrap(cause, ErrGitCommandFailed, "git command failed")

	if wrapped.Code != ErrGitCommandFailed {
		t.Errorf("Code = %v, want %v", wrapped.Code, ErrGitCommandFailed)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Wrapped error should contain the cause")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"config", NewConfigNotFoundError("asum.toml"), 1},
		{"git", NewGitError(errors.New("exit 128"), ""), 2},
		{"provider", NewUnauthorizedError("gemini"), 3},
		{"regular error", errors.New("regular error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewConfigParseError_Location(t *testing.T) {
	err := NewConfigParseError("asum.toml", 3, 7, errors.New("expected '='"))

	if !strings.Contains(err.Error(), "line 3, column 7") {
		t.Errorf("Error() = %q, want line/column", err.Error())
	}
	if err.Context["line"] != 3 || err.Context["column"] != 7 {
		t.Errorf("Context = %v, want line 3 column 7", err.Context)
	}

	noLoc := NewConfigParseError("asum.toml", 0, 0, nil)
	if strings.Contains(noLoc.Error(), "line") {
		t.Errorf("Error() = %q, unknown location should not be printed", noLoc.Error())
	}
}

func TestNewUnreachableError_OllamaSuggestion(t *testing.T) {
	err := NewUnreachableError("ollama", "http://localhost:11434/api/chat", errors.New("connection refused"))

	if !strings.Contains(err.Suggestion, "ollama serve") {
		t.Errorf("Suggestion = %q, want a hint to start the local runtime", err.Suggestion)
	}
}

func TestRawText(t *testing.T) {
	err := fmt.Errorf("normalize: %w", NewInvalidFormatError("Here is a summary of changes."))

	if got := RawText(err); got != "Here is a summary of changes." {
		t.Errorf("RawText() = %q", got)
	}
	if got := RawText(NewUnauthorizedError("gemini")); got != "" {
		t.Errorf("RawText() on other codes = %q, want empty", got)
	}
}

func TestParseRetryAfterHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "60", 60 * time.Second},
		{"invalid", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRetryAfterHeader(tt.header); got != tt.expected {
				t.Errorf("ParseRetryAfterHeader() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFormatError_MasksKeys(t *testing.T) {
	err := Wrap(errors.New("request with sk-abcdefghijklmnopqrstuvwxyz1234 failed"), ErrProviderBadResponse, "openai error")
	out := FormatError(err)

	if strings.Contains(out, "sk-abcdefghijklmnopqrstuvwxyz1234") {
		t.Errorf("FormatError leaked the key: %s", out)
	}
	if !strings.Contains(out, "1234") {
		t.Errorf("FormatError should keep the last 4 characters: %s", out)
	}
}

func TestFormatError_Suggestion(t *testing.T) {
	out := FormatError(NewConfigNotFoundError("missing.toml"))

	if !strings.HasPrefix(out, "Error: configuration file not found: missing.toml") {
		t.Errorf("FormatError() = %q", out)
	}
	if !strings.Contains(out, "Suggestion: Run 'asum init'") {
		t.Errorf("FormatError() missing suggestion: %q", out)
	}
}

func TestFormatErrorVerbose_SkipsRawText(t *testing.T) {
	out := FormatErrorVerbose(NewInvalidFormatError("some long raw output"))

	if !strings.Contains(out, "[InvalidFormat]") {
		t.Errorf("FormatErrorVerbose() missing code: %q", out)
	}
	if strings.Contains(out, "some long raw output") {
		t.Errorf("FormatErrorVerbose() should not repeat the raw text: %q", out)
	}
}
