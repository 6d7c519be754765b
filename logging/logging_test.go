package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")

	w, err := OpenRotating(path, 16)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("0123456789abcdefXYZ")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("fresh")); err != nil {
		t.Fatalf("write: %v", err)
	}

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(backup) != "0123456789abcdefXYZ" {
		t.Fatalf("unexpected backup content %q", backup)
	}
	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(current) != "fresh" {
		t.Fatalf("unexpected current content %q", current)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARNING": slog.LevelWarn,
		" debug ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("guard fired", "seen", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, "guard fired") || !strings.Contains(out, "seen=3") {
		t.Fatalf("missing warn line: %s", out)
	}
}
