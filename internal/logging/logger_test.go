package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_WritesFormattedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Info("task alive")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "| INFO ") {
		t.Fatalf("expected INFO level marker, got %q", line)
	}
	if !strings.Contains(line, "task alive") {
		t.Fatalf("expected message, got %q", line)
	}
}

func TestLogger_RotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()
	l.maxBytes = 128

	for i := 0; i < 20; i++ {
		l.Info("this is a moderately long log line to force rotation soon")
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup .1 to exist: %v", err)
	}
}

func TestLogger_DebugDisabledDefaultsOpen(t *testing.T) {
	dir := t.TempDir()
	l, err := New(filepath.Join(dir, "x.log"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.SetLevelEnabled("DEBUG", false)
	if l.Enabled("DEBUG") {
		t.Fatalf("expected DEBUG disabled")
	}
	if !l.Enabled("UNKNOWN_LEVEL") {
		t.Fatalf("expected unknown level to fail open")
	}
}
