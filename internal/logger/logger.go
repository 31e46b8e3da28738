// Package logger builds the zerolog loggers used across the service and
// carries them through context so library code never logs on a global.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger.
type ContextKey string

// LoggerKey is where WithContext stores the logger.
const LoggerKey ContextKey = "logger"

// New returns the default console logger: stdout, RFC3339 timestamps,
// caller annotations.
func New() zerolog.Logger {
	return NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// NewWithLevel creates a logger at the named level ("debug", "info", "warn",
// "error"). Unknown or empty names fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return New().Level(lvl)
}

// NewWithWriter creates a logger that writes to w. Tests pass a buffer
// here to assert on output.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// WithContext stores the logger in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger when
// ctx never went through WithContext.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// ForUpload returns a sublogger scoped to one upload. Every pipeline step logs
// through this so a single upload's lines can be grepped out of interleaved
// worker output.
func ForUpload(logger zerolog.Logger, uploadID, userID string) zerolog.Logger {
	return logger.With().Str("upload_id", uploadID).Str("user_id", userID).Logger()
}

// WithFields returns a child logger with every given field attached.
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	lc := logger.With()
	for k, v := range fields {
		lc = lc.Interface(k, v)
	}
	return lc.Logger()
}
