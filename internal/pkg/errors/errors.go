// Package errors provides error types, handling utilities, and retry logic for asum.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrorCode represents the category of an error.
type ErrorCode int

const (
	// User errors (Exit Code 1)
	ErrConfigNotFound ErrorCode = iota + 100
	ErrConfigParse
	ErrConfigInvalid
	ErrInvalidArguments

	// System errors (Exit Code 2)
	ErrGitCommandFailed ErrorCode = iota + 200
	ErrFileSystemError
	ErrClipboardFailed

	// External errors (Exit Code 3)
	ErrProviderUnreachable ErrorCode = iota + 300
	ErrProviderUnauthorized
	ErrProviderRateLimited
	ErrProviderTimeout
	ErrProviderBadResponse
	ErrInvalidFormat

	// Interrupted by the user (Exit Code 130)
	ErrCancelled ErrorCode = 400
)

// ExitCancelled follows the shell convention for SIGINT.
const ExitCancelled = 130

// ExitCode returns the appropriate exit code for an error code.
func (c ErrorCode) ExitCode() int {
	switch {
	case c == ErrCancelled:
		return ExitCancelled
	case c >= 100 && c < 200:
		return 1 // User errors
	case c >= 200 && c < 300:
		return 2 // System errors
	case c >= 300:
		return 3 // External errors
	default:
		return 1
	}
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrConfigNotFound:
		return "ConfigNotFound"
	case ErrConfigParse:
		return "ConfigParse"
	case ErrConfigInvalid:
		return "ConfigInvalid"
	case ErrInvalidArguments:
		return "InvalidArguments"
	case ErrGitCommandFailed:
		return "GitCommandFailed"
	case ErrFileSystemError:
		return "FileSystemError"
	case ErrClipboardFailed:
		return "ClipboardFailed"
	case ErrProviderUnreachable:
		return "ProviderUnreachable"
	case ErrProviderUnauthorized:
		return "ProviderUnauthorized"
	case ErrProviderRateLimited:
		return "ProviderRateLimited"
	case ErrProviderTimeout:
		return "ProviderTimeout"
	case ErrProviderBadResponse:
		return "ProviderBadResponse"
	case ErrInvalidFormat:
		return "InvalidFormat"
	case ErrCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// AppError represents an application error with context.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Context    map[string]interface{}
	Suggestion string
	RetryAfter time.Duration // For rate limit errors
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the orchestrator may re-issue the request.
// Only rate limiting qualifies; every other failure is left to the user.
func (e *AppError) IsRetryable() bool {
	return e.Code == ErrProviderRateLimited
}

// GetRetryAfter returns the duration to wait before retrying.
func (e *AppError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return 0
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// RetryableError is an interface for errors that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
	GetRetryAfter() time.Duration
}

var _ RetryableError = (*AppError)(nil)

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// GetExitCode returns the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code.ExitCode()
	}
	return 1
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetRetryAfter returns the retry-after duration for an error.
func GetRetryAfter(err error) time.Duration {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.GetRetryAfter()
	}
	return 0
}

// Configuration errors

// NewConfigNotFoundError creates an error for a configuration path that does not exist.
func NewConfigNotFoundError(path string) *AppError {
	return &AppError{
		Code:       ErrConfigNotFound,
		Message:    fmt.Sprintf("configuration file not found: %s", path),
		Suggestion: "Run 'asum init' to create a starter asum.toml",
		Context:    map[string]interface{}{"path": path},
	}
}

// NewConfigParseError creates an error for malformed configuration files.
// line and column are 1-based; zero means the location is unknown.
func NewConfigParseError(path string, line, column int, cause error) *AppError {
	msg := fmt.Sprintf("invalid configuration syntax in %s", path)
	if line > 0 {
		msg = fmt.Sprintf("invalid configuration syntax in %s at line %d, column %d", path, line, column)
	}
	return &AppError{
		Code:       ErrConfigParse,
		Message:    msg,
		Cause:      cause,
		Suggestion: "Fix the reported location and run 'asum verify' again",
		Context: map[string]interface{}{
			"path":   path,
			"line":   line,
			"column": column,
		},
	}
}

// NewConfigInvalidError creates an error for values that parse but are out of range.
func NewConfigInvalidError(message string) *AppError {
	return &AppError{
		Code:       ErrConfigInvalid,
		Message:    message,
		Suggestion: "Check the value ranges documented in asum.toml",
	}
}

// NewGitError creates an error for git command failures.
func NewGitError(err error, output string) *AppError {
	appErr := &AppError{
		Code:       ErrGitCommandFailed,
		Message:    "git command failed",
		Cause:      err,
		Suggestion: "Make sure you are inside a git repository",
	}
	if output != "" {
		appErr.Context = map[string]interface{}{
			"output": output,
		}
	}
	return appErr
}

// Provider errors

// NewUnreachableError creates an error for a backend that refused or dropped the connection.
func NewUnreachableError(provider, endpoint string, err error) *AppError {
	suggestion := "Please check your network connection and the configured endpoint"
	if provider == "ollama" {
		suggestion = "Start the local runtime with 'ollama serve' and make sure the model is pulled"
	}
	return &AppError{
		Code:       ErrProviderUnreachable,
		Message:    fmt.Sprintf("%s is unreachable at %s", provider, endpoint),
		Cause:      err,
		Suggestion: suggestion,
	}
}

// NewUnauthorizedError creates an error for rejected or missing credentials.
func NewUnauthorizedError(provider string) *AppError {
	return &AppError{
		Code:       ErrProviderUnauthorized,
		Message:    fmt.Sprintf("authentication failed with %s", provider),
		Suggestion: fmt.Sprintf("Set [%s].api_key in asum.toml or ASUM_%s_API_KEY", provider, strings.ToUpper(provider)),
	}
}

// NewRateLimitError creates an error for rate limiting.
func NewRateLimitError(provider string, retryAfter time.Duration) *AppError {
	suggestion := "Please wait and try again later"
	if retryAfter > 0 {
		suggestion = fmt.Sprintf("Please wait %v and try again", retryAfter)
	}
	return &AppError{
		Code:       ErrProviderRateLimited,
		Message:    fmt.Sprintf("%s rate limit exceeded", provider),
		RetryAfter: retryAfter,
		Suggestion: suggestion,
	}
}

// NewTimeoutError creates an error for a generation that exceeded the deadline.
func NewTimeoutError(provider string, timeout time.Duration, err error) *AppError {
	msg := fmt.Sprintf("%s request timed out", provider)
	if timeout > 0 {
		msg = fmt.Sprintf("%s did not respond within %v", provider, timeout)
	}
	return &AppError{
		Code:       ErrProviderTimeout,
		Message:    msg,
		Cause:      err,
		Suggestion: "Increase general.timeout_seconds or use a smaller model",
	}
}

// NewCancelledError creates an error for work stopped by the user, usually Ctrl+C.
func NewCancelledError(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrCancelled,
		Message: operation + " cancelled",
		Cause:   err,
	}
}

// NewBadResponseError creates an error for non-2xx statuses and unparseable bodies.
func NewBadResponseError(provider string, status int, err error) *AppError {
	msg := fmt.Sprintf("%s returned an invalid response", provider)
	if status > 0 {
		msg = fmt.Sprintf("%s returned HTTP %d", provider, status)
	}
	return &AppError{
		Code:    ErrProviderBadResponse,
		Message: msg,
		Cause:   err,
		Context: map[string]interface{}{"status": status},
	}
}

// NewInvalidFormatError creates an error for generated text that is not a commit message.
// The raw text is kept so callers can show it to the user.
func NewInvalidFormatError(raw string) *AppError {
	return &AppError{
		Code:       ErrInvalidFormat,
		Message:    "generated text is not a valid conventional commit message",
		Suggestion: "Re-run the command or adjust [prompts] in asum.toml",
		Context:    map[string]interface{}{"raw": raw},
	}
}

// RawText returns the raw generated text attached to an InvalidFormat error.
func RawText(err error) string {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Code != ErrInvalidFormat {
		return ""
	}
	raw, _ := appErr.Context["raw"].(string)
	return raw
}

// ParseRetryAfterHeader parses the Retry-After header value.
// It handles both seconds (integer) and HTTP-date formats.
func ParseRetryAfterHeader(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}

// FormatError formats an error for user display.
// API keys and other sensitive data are automatically masked.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(appErr.Message))

		if appErr.Cause != nil {
			sb.WriteString("\n  Cause: ")
			sb.WriteString(SanitizeErrorMessage(appErr.Cause.Error()))
		}

		if appErr.Suggestion != "" {
			sb.WriteString("\n  Suggestion: ")
			sb.WriteString(appErr.Suggestion)
		}
	} else {
		sb.WriteString("Error: ")
		sb.WriteString(SanitizeErrorMessage(err.Error()))
	}

	return sb.String()
}

// FormatErrorVerbose formats an error with its code, context and chain.
func FormatErrorVerbose(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr == nil {
		fmt.Fprintf(&sb, "Error: %v\n", SanitizeErrorMessage(err.Error()))
		printErrorChain(&sb, errors.Unwrap(err), 1)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Error [%s]: %s\n", appErr.Code, SanitizeErrorMessage(appErr.Message))
	if appErr.Cause != nil {
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, appErr.Cause, 2)
	}
	for k, v := range appErr.Context {
		if k == "raw" {
			continue
		}
		fmt.Fprintf(&sb, "  %s: %v\n", k, SanitizeErrorMessage(fmt.Sprintf("%v", v)))
	}
	if appErr.Suggestion != "" {
		fmt.Fprintf(&sb, "  Suggestion: %s\n", appErr.Suggestion)
	}
	if appErr.RetryAfter > 0 {
		fmt.Fprintf(&sb, "  Retry after: %v\n", appErr.RetryAfter)
	}

	return sb.String()
}

func printErrorChain(sb *strings.Builder, err error, indent int) {
	for ; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(sb, "%s- %T: %v\n", strings.Repeat("  ", indent), err, SanitizeErrorMessage(err.Error()))
		indent++
	}
}

// SanitizeErrorMessage masks any API keys or sensitive data in error messages.
func SanitizeErrorMessage(msg string) string {
	return apiKeyPattern.ReplaceAllStringFunc(msg, func(match string) string {
		if len(match) <= 4 {
			return "****"
		}
		return strings.Repeat("*", len(match)-4) + match[len(match)-4:]
	})
}

// apiKeyPattern matches OpenAI style (sk-...) and Google style (AIza...) keys.
var apiKeyPattern = regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}|AIza[0-9A-Za-z_-]{30,}`)
