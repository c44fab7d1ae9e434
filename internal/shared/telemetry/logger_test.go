package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWarnRedactsSecretsAndFlattensErrors(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	Warn("sync.record.skipped", map[string]any{
		"job":    "extensions",
		"header": "Authorization: Bearer patABC.123",
		"error":  errors.New("boom"),
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["msg"] != "sync.record.skipped" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["header"] != "Authorization: Bearer <redacted>" {
		t.Fatalf("expected redacted header, got %v", payload["header"])
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error string, got %v", payload["error"])
	}
}
