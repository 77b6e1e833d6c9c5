package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func captureLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return WithHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func TestLevelsAndFields(t *testing.T) {
	l, buf := captureLogger(slog.LevelInfo)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug leaked below the level")
	}

	l.Info("block imported", "number", 7, "hash", "0xabc")
	out := buf.String()
	if !strings.Contains(out, "block imported") ||
		!strings.Contains(out, "number=7") ||
		!strings.Contains(out, "hash=0xabc") {
		t.Fatalf("record = %q", out)
	}
}

func TestNamedAndWith(t *testing.T) {
	l, buf := captureLogger(slog.LevelInfo)
	l.Named("chain").With("branch", "a").Warn("reorg")
	out := buf.String()
	if !strings.Contains(out, "module=chain") || !strings.Contains(out, "branch=a") {
		t.Fatalf("record = %q", out)
	}
}

func TestDefaultLoggerSwap(t *testing.T) {
	l, buf := captureLogger(slog.LevelInfo)
	old := defaultLogger.Load()
	SetDefault(l)
	defer SetDefault(old)

	Info("through default")
	if !strings.Contains(buf.String(), "through default") {
		t.Fatal("default logger not swapped")
	}
}
