package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerWritesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "qa", "warn")
	logger.Info("dropped")
	logger.Warn("search_failed", "backend", "diffbot")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if record["service"] != "qa" || record["msg"] != "search_failed" || record["backend"] != "diffbot" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got.String() != "INFO" {
		t.Fatalf("expected INFO, got %s", got)
	}
	if got := parseLevel(" Debug "); got.String() != "DEBUG" {
		t.Fatalf("expected DEBUG, got %s", got)
	}
}
