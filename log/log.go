// Package log is a thin structured-logging layer over log/slog: leveled
// records with alternating key/value context, one process-wide default
// logger, and named sub-loggers per subsystem.
package log

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger emits leveled, structured records.
type Logger struct {
	inner *slog.Logger
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(&Logger{inner: slog.New(slog.NewTextHandler(os.Stderr, nil))})
}

// New builds a logger writing text records at the given level to stderr.
func New(level slog.Level) *Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// WithHandler wraps an arbitrary slog handler.
func WithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Named returns a child logger tagged with a subsystem name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger carrying extra key/value context.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// Package-level helpers on the default logger.
func Debug(msg string, kv ...any) { defaultLogger.Load().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { defaultLogger.Load().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { defaultLogger.Load().Warn(msg, kv...) }
func Error(msg string, kv ...any) { defaultLogger.Load().Error(msg, kv...) }
