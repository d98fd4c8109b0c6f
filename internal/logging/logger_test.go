package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"info":  log.InfoLevel,
		"":      log.InfoLevel,
		"loud":  log.InfoLevel,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv("X86DIS_LOG_LEVEL", "debug")
	t.Setenv("X86DIS_LOG_PREFIX", "test")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	defer lg.Close()

	lg.Debug("decode diagnostic", "addr", "0x10")
	out := buf.String()
	if !strings.Contains(out, "decode diagnostic") || !strings.Contains(out, "addr=0x10") {
		t.Errorf("unexpected log output: %q", out)
	}
	if !strings.Contains(out, "test") {
		t.Errorf("missing prefix in %q", out)
	}
	if !IsDebug() {
		t.Error("IsDebug() = false with X86DIS_LOG_LEVEL=debug")
	}
}

func TestNewLoggerWithWriterDefaultLevel(t *testing.T) {
	t.Setenv("X86DIS_LOG_LEVEL", "")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	lg.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output at info level: %q", buf.String())
	}
}

func TestNewLoggerToFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("X86DIS_LOG_TO_FILE", "1")
	t.Setenv("X86DIS_LOG_LEVEL", "")

	var buf bytes.Buffer
	lg := NewLoggerTo(&buf)
	lg.Warn("decoded with diagnostics", "diagnostics", 2)
	if err := lg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("output went to the writer: %q", buf.String())
	}
	files, err := filepath.Glob(filepath.Join(dir, "x86dis-*-debug.log"))
	if err != nil || len(files) != 1 {
		t.Fatalf("log files = %v (%v), want one", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "decoded with diagnostics") {
		t.Errorf("log file content = %q", data)
	}
}

func TestNewLoggerToWriter(t *testing.T) {
	t.Setenv("X86DIS_LOG_TO_FILE", "")
	t.Setenv("X86DIS_LOG_LEVEL", "")

	var buf bytes.Buffer
	lg := NewLoggerTo(&buf)
	defer lg.Close()
	lg.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("output = %q", buf.String())
	}
}
