package obs

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestLogRequestStampsDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	defer Logger().SetOutput(os.Stdout)

	LogRequest(map[string]any{"msg": "startup_complete"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected default level info, got %v", entry["level"])
	}
	if entry["msg"] != "startup_complete" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
}

func TestLogRequestKeepsExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	defer Logger().SetOutput(os.Stdout)

	LogRequest(map[string]any{"level": "warn", "msg": "token_rejected"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", entry["level"])
	}
}
