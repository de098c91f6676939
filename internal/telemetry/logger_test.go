package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerToLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn record missing from output %q", out)
	}
}

func TestNewLoggerToJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Info("stage complete", "stage", "index")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "stage complete" {
		t.Errorf("msg = %v, want %q", record["msg"], "stage complete")
	}
	if record["stage"] != "index" {
		t.Errorf("stage = %v, want %q", record["stage"], "index")
	}
}

func TestNewLoggerToUnknownsFallBack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "loud", "xml")

	logger.Debug("hidden at default info level")
	logger.Info("kept")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered at fallback info level, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("info record missing from output %q", out)
	}
	if json.Valid(buf.Bytes()) {
		t.Errorf("fallback format should be text, got JSON %q", out)
	}
}
