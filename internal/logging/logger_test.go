package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func reset() {
	Close()
	Logger = nil
}

func TestHelpersNoopBeforeInit(t *testing.T) {
	reset()
	// Must not panic
	Info("hello", "k", "v")
	Debug("hello")
	Warn("hello")
	Error("hello")
	if WithPrefix("x") != nil {
		t.Error("WithPrefix before Init should be nil")
	}
}

func TestInitWriterLevel(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	if err := InitWriter(&buf, "warn"); err != nil {
		t.Fatalf("InitWriter: %v", err)
	}

	Info("quiet")
	Warn("loud", "key", "serverUrl")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "serverUrl") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestInitWriterInvalidLevel(t *testing.T) {
	defer reset()
	if err := InitWriter(&bytes.Buffer{}, "chatty"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestInitCreatesDatedFile(t *testing.T) {
	defer reset()
	dir := t.TempDir()
	if err := Init(dir, "debug"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Debug("written")
	Close()

	path := filepath.Join(dir, "logs", "narratives-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file content = %q", data)
	}
}
