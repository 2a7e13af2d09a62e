package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("slot saved", "slot_id", 42)

			entry := decodeEntry(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "slot saved" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["slot_id"] != float64(42) {
				t.Errorf("slot_id = %v, want 42", entry["slot_id"])
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.With("component", "registry").Info("loaded")

	if got := decodeEntry(t, buf)["component"]; got != "registry" {
		t.Errorf("component = %v, want registry", got)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")

	l.Info("filtered")
	if buf.Len() > 0 {
		t.Fatal("info should be filtered at error level")
	}

	SetLevel("debug")
	l.Info("visible")
	if buf.Len() == 0 {
		t.Error("info should be logged after level changed to debug")
	}
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"INFO", "info"},
		{"warning", "warn"},
		{"Error", "error"},
		{"bogus", "info"},
		{"", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if got := GetLevel(); got != tt.expected {
				t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")

	l.Info("backup created", "name", "Backup_01")

	out := buf.String()
	if !strings.Contains(out, "backup created") || !strings.Contains(out, "name=Backup_01") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(Config{Level: "info", Format: "xml", Output: &bytes.Buffer{}}); err == nil {
		t.Fatal("New() accepted format xml")
	}
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "savekeep.log")
	var buf bytes.Buffer
	l, err := New(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
		File:   FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("game saved", "slot_id", 7)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "game saved") {
		t.Errorf("log file = %q", data)
	}
	if !strings.Contains(buf.String(), "game saved") {
		t.Errorf("primary output = %q", buf.String())
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("discarded", "slot_id", 1)
	l.With("a", 1).Info("discarded")
}

func TestPackageLevelFunctions(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")
	SetDefault(l)
	t.Cleanup(func() {
		d, _ := New(DefaultConfig())
		SetDefault(d)
	})

	for name, fn := range map[string]func(string, ...any){
		"Debug": Debug, "Info": Info, "Warn": Warn, "Error": Error,
	} {
		buf.Reset()
		fn("message")
		if buf.Len() == 0 {
			t.Errorf("%s() produced no output", name)
		}
	}
}
