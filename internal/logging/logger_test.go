package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestHelpersNoopBeforeInit(t *testing.T) {
	Logger = nil
	// Must not panic.
	Info("x")
	Debug("x")
	Warn("x")
	Error("x")
	if WithPrefix("p") != nil {
		t.Error("WithPrefix should be nil before init")
	}
}

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, log.InfoLevel)
	defer func() { Logger = nil }()

	Debug("hidden", "k", 1)
	Info("visible", "notice", "n-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "notice=n-1") {
		t.Errorf("missing info line: %q", out)
	}
}

func TestInitCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, true); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Close()
	Logger = nil

	matches, err := filepath.Glob(filepath.Join(dir, "logs", "tenderwatch-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "tenderwatch started") {
		t.Errorf("startup line missing: %q", data)
	}
}
