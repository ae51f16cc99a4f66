package logger

import (
	"strings"
	"testing"
)

func TestLogger_LogLevels(t *testing.T) {
	log := New(10)

	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	entries := log.GetEntries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Level != "INFO" {
		t.Errorf("expected INFO level, got %s", entries[0].Level)
	}
	if entries[1].Level != "WARN" {
		t.Errorf("expected WARN level, got %s", entries[1].Level)
	}
	if entries[2].Level != "ERROR" {
		t.Errorf("expected ERROR level, got %s", entries[2].Level)
	}
}

func TestLogger_RingBuffer(t *testing.T) {
	log := New(3)

	log.Info("message 1")
	log.Info("message 2")
	log.Info("message 3")
	log.Info("message 4")

	entries := log.GetEntries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (buffer size), got %d", len(entries))
	}

	if !strings.Contains(entries[0].Message, "message 2") {
		t.Errorf("expected oldest entry to be 'message 2', got %s", entries[0].Message)
	}
	if !strings.Contains(entries[2].Message, "message 4") {
		t.Errorf("expected newest entry to be 'message 4', got %s", entries[2].Message)
	}
}

func TestLogger_Formatting(t *testing.T) {
	log := New(10)

	log.Info("A=%d S=%d: %d solutions", 1000, 1000000, 42)

	entries := log.GetEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	expected := "A=1000 S=1000000: 42 solutions"
	if entries[0].Message != expected {
		t.Errorf("expected %q, got %q", expected, entries[0].Message)
	}
}

func TestLogger_Named(t *testing.T) {
	root := New(10)
	solver := root.Named("solver")

	root.Info("root message")
	solver.Warn("budget exceeded")

	entries := root.GetEntries()
	if len(entries) != 2 {
		t.Fatalf("expected child to share the parent buffer, got %d entries", len(entries))
	}
	if entries[0].Component != "" {
		t.Errorf("expected empty component for root, got %q", entries[0].Component)
	}
	if entries[1].Component != "solver" {
		t.Errorf("expected component 'solver', got %q", entries[1].Component)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	log := New(10)

	log.Debug("hidden")
	if n := len(log.GetEntries()); n != 0 {
		t.Fatalf("expected debug to be dropped at default level, got %d entries", n)
	}

	log.SetLevel(LevelDebug)
	log.Named("cache").Debug("visible")
	if n := len(log.GetEntries()); n != 1 {
		t.Fatalf("expected 1 entry after lowering level, got %d", n)
	}

	log.SetLevel(LevelError)
	log.Warn("dropped")
	log.Error("kept")
	entries := log.GetEntries()
	if len(entries) != 2 || entries[1].Message != "kept" {
		t.Errorf("unexpected entries after raising level: %+v", entries)
	}
}

func TestLogger_Timestamp(t *testing.T) {
	log := New(10)

	log.Info("test")

	entries := log.GetEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	// Timestamp should be in format "2006-01-02 15:04:05.000"
	if len(entries[0].Timestamp) != 23 {
		t.Errorf("unexpected timestamp format: %s", entries[0].Timestamp)
	}
}

func TestLogger_EmptyBuffer(t *testing.T) {
	log := New(10)

	entries := log.GetEntries()
	if len(entries) != 0 {
		t.Errorf("expected 0 entries for empty buffer, got %d", len(entries))
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "INFO"}, // Unknown defaults to INFO
	}

	for _, tt := range tests {
		if tt.level.String() != tt.expected {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, tt.level.String(), tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
