// Package logger wraps log/slog with the handler setup shared by every
// component of the tracker.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type wrapper for the Go stdlib slog.Logger.
type Logger struct {
	*slog.Logger
}

// New returns a Logger writing to STDERR at the given level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a Logger writing to w at the given level.
func NewLogger(level slog.Level, w io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Err wraps an error as a slog attribute.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
