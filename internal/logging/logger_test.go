package logging

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

type captureWriter struct {
	lines []string
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.lines = append(w.lines, string(p))
	return len(p), nil
}

func TestConsoleHandlerFormatsAttrs(t *testing.T) {
	w := &captureWriter{}
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(w, lvl))

	logger.Info("claimed batch", String("token", "abc"), Int("jobs", 3))

	if len(w.lines) != 1 {
		t.Fatalf("expected one line, got %d", len(w.lines))
	}
	line := w.lines[0]
	if !strings.Contains(line, "INFO") || !strings.Contains(line, "claimed batch") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "token=abc") || !strings.Contains(line, "jobs=3") {
		t.Fatalf("attrs missing from line: %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	w := &captureWriter{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	handler := newConsoleHandler(w, lvl)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
