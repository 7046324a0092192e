package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from the backing logger implementation.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a user supplied level name to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is the minimal logging interface consumed by the simulation engine.
// Messages use printf-style formatting so call sites stay terse; any
// structured logger can be adapted behind it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// NoOpLogger discards all log output. It is the default for library use so
// embedding applications opt into logging explicitly.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NoOpLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NoOpLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NoOpLogger) Error(string, ...any) {}

// SlogLogger adapts the standard library slog package to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a text handler based logger writing to w at the given level.
func NewSlogLogger(level LogLevel, w io.Writer) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}

	var slogLevel slog.Level
	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})

	return &SlogLogger{logger: slog.New(handler)}
}

// Debug implements Logger.
func (l *SlogLogger) Debug(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }

// Info implements Logger.
func (l *SlogLogger) Info(format string, args ...any) { l.logger.Info(fmt.Sprintf(format, args...)) }

// Warn implements Logger.
func (l *SlogLogger) Warn(format string, args ...any) { l.logger.Warn(fmt.Sprintf(format, args...)) }

// Error implements Logger.
func (l *SlogLogger) Error(format string, args ...any) { l.logger.Error(fmt.Sprintf(format, args...)) }

// ZerologLogger adapts a zerolog.Logger to the Logger interface. Used by the
// CLI for human friendly console output.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewConsoleLogger creates a zerolog console writer logger at the given level.
func NewConsoleLogger(level LogLevel, w io.Writer) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}

	var zl zerolog.Level
	switch level {
	case LogLevelDebug:
		zl = zerolog.DebugLevel
	case LogLevelWarn:
		zl = zerolog.WarnLevel
	case LogLevelError:
		zl = zerolog.ErrorLevel
	default:
		zl = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(zl).With().Timestamp().Logger()

	return &ZerologLogger{logger: logger}
}

// Debug implements Logger.
func (l *ZerologLogger) Debug(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }

// Info implements Logger.
func (l *ZerologLogger) Info(format string, args ...any) { l.logger.Info().Msgf(format, args...) }

// Warn implements Logger.
func (l *ZerologLogger) Warn(format string, args ...any) { l.logger.Warn().Msgf(format, args...) }

// Error implements Logger.
func (l *ZerologLogger) Error(format string, args ...any) { l.logger.Error().Msgf(format, args...) }
