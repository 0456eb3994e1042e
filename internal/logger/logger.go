// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log is the global logger instance. It is nil until Init is called.
var Log *slog.Logger

// level is shared by every handler Init creates, so SetLevel takes effect
// immediately.
var level slog.LevelVar

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init installs a text logger writing to w at the given level.
func Init(levelStr string, w io.Writer) {
	SetLevel(levelStr)
	if w == nil {
		w = os.Stderr
	}
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: &level,
	}))
}

// InitFile is Init writing to path, creating parent directories. The
// returned closer must be called on shutdown.
func InitFile(levelStr, path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	Init(levelStr, f)
	return f, nil
}

// SetLevel changes the log level at runtime. Valid values: debug, info, warn, error.
// Invalid values fall back to info.
func SetLevel(levelStr string) {
	var lvl slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	level.Set(lvl)
}

// Logger returns the global logger, or a discarding one before Init.
func Logger() *slog.Logger {
	if Log != nil {
		return Log
	}
	return discard
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if Log != nil {
		Log.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if Log != nil {
		Log.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if Log != nil {
		Log.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if Log != nil {
		Log.Error(msg, args...)
	}
}
