package infra

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerProductionJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := newLogger(&buf, "production")
	l.Debug().Msg("hidden")
	l.Info().Str("job_id", "img-1").Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "visible" || entry["job_id"] != "img-1" || entry["service"] != "listing-studio" {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := newLogger(&buf, "production")
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
}
