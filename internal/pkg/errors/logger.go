package errors

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging with verbose mode support.
type Logger struct {
	zl      zerolog.Logger
	verbose bool
}

// Options configures the process-wide logger.
type Options struct {
	// Console receives human-readable lines, usually os.Stderr.
	Console io.Writer
	// NoColor disables ANSI colors on the console writer.
	NoColor bool
	// LogDir, when set, receives a daily JSON log file.
	LogDir string
	// RunID is attached to every line.
	RunID   string
	Verbose bool
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(os.Stderr, false))
}

// NewLogger creates a console logger writing to output. Without verbose only
// warnings and errors are written.
func NewLogger(output io.Writer, verbose bool) *Logger {
	cw := zerolog.ConsoleWriter{Out: output, NoColor: true, TimeFormat: "15:04:05"}
	return &Logger{
		zl:      zerolog.New(cw).Level(consoleLevel(verbose)).With().Timestamp().Logger(),
		verbose: verbose,
	}
}

// Init builds the process-wide logger. The returned closer flushes the log file.
// A log file that cannot be opened leaves console logging in place.
func Init(opt Options) (func() error, error) {
	console := opt.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{levelFilter{
		w:   zerolog.ConsoleWriter{Out: console, NoColor: opt.NoColor, TimeFormat: "15:04:05"},
		min: consoleLevel(opt.Verbose),
	}}

	closer := func() error { return nil }
	var fileErr error
	if opt.LogDir != "" {
		f, err := openDailyLog(opt.LogDir, time.Now())
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
			closer = f.Close
		}
	}

	level := zerolog.InfoLevel
	if opt.Verbose {
		level = zerolog.DebugLevel
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if opt.RunID != "" {
		ctx = ctx.Str("run_id", opt.RunID)
	}
	defaultLogger.Store(&Logger{zl: ctx.Logger(), verbose: opt.Verbose})

	return closer, fileErr
}

func openDailyLog(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := filepath.Join(dir, "asum.log."+now.Format("2006-01-02"))
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

func consoleLevel(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

// levelFilter drops events below min for one writer of a MultiLevelWriter.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// SetOutput replaces the process-wide logger with a console logger on w.
func SetOutput(w io.Writer, verbose bool) {
	defaultLogger.Store(NewLogger(w, verbose))
}

// IsVerbose returns whether verbose logging is enabled.
func IsVerbose() bool {
	return defaultLogger.Load().verbose
}

// Zerolog exposes the underlying logger for structured fields.
func Zerolog() *zerolog.Logger {
	return &defaultLogger.Load().zl
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// LogAPIRequest logs an outgoing provider request.
func (l *Logger) LogAPIRequest(provider, endpoint, model string, promptLength int) {
	l.zl.Debug().
		Str("provider", provider).
		Str("endpoint", SanitizeErrorMessage(endpoint)).
		Str("model", model).
		Int("prompt_length", promptLength).
		Msg("api request")
}

// LogAPIResponse logs a provider response.
func (l *Logger) LogAPIResponse(provider string, statusCode int, responseLength int, duration time.Duration) {
	l.zl.Debug().
		Str("provider", provider).
		Int("status", statusCode).
		Int("response_length", responseLength).
		Dur("duration", duration).
		Msg("api response")
}

// LogRetry logs a retry attempt.
func (l *Logger) LogRetry(attempt int, maxAttempts int, err error, delay time.Duration) {
	l.zl.Warn().
		Int("attempt", attempt).
		Int("max_attempts", maxAttempts).
		Str("error", SanitizeErrorMessage(err.Error())).
		Dur("delay", delay).
		Msg("retrying request")
}

// Package-level logging functions using the default logger

// Error logs an error message.
func Error(format string, args ...interface{}) {
	defaultLogger.Load().Error(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	defaultLogger.Load().Warn(format, args...)
}

// Info logs an info message.
func Info(format string, args ...interface{}) {
	defaultLogger.Load().Info(format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	defaultLogger.Load().Debug(format, args...)
}

// LogAPIRequest logs an outgoing provider request.
func LogAPIRequest(provider, endpoint, model string, promptLength int) {
	defaultLogger.Load().LogAPIRequest(provider, endpoint, model, promptLength)
}

// LogAPIResponse logs a provider response.
func LogAPIResponse(provider string, statusCode int, responseLength int, duration time.Duration) {
	defaultLogger.Load().LogAPIResponse(provider, statusCode, responseLength, duration)
}

// LogRetry logs a retry attempt.
func LogRetry(attempt int, maxAttempts int, err error, delay time.Duration) {
	defaultLogger.Load().LogRetry(attempt, maxAttempts, err, delay)
}
