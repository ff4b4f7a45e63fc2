package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.Info("campaign started", "id", "campaign-1", "budget", 10)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "campaign started" {
		t.Fatalf("expected msg field, got %v", entry["msg"])
	}
	if entry["id"] != "campaign-1" {
		t.Fatalf("expected id attribute, got %v", entry["id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info message should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatalf("warn message should pass at warn level")
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewText("debug", &buf)

	log.Debug("evaluating", "point", "porosity=0.5")
	if !strings.Contains(buf.String(), "evaluating") {
		t.Fatalf("expected text output to contain message, got %q", buf.String())
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("verbose", &buf)

	log.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered when level defaults to info")
	}
	log.Info("kept")
	if buf.Len() == 0 {
		t.Fatalf("info should pass when level defaults to info")
	}
}
