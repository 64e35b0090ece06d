package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"evenue.org/internal/auth"
	"evenue.org/internal/obs"
)

func TestLogEventIncludesRequestAndUserContext(t *testing.T) {
	logger := obs.Logger()
	origWriter := logger.Writer()

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(origWriter)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithPrincipal(ctx, auth.Principal{UserID: "u-1", Username: "alice"})

	if err := LogEvent(ctx, "auth.login.success", map[string]any{"login": "alice"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("audit entry is not valid JSON: %v", err)
	}
	if entry["event"] != "auth.login.success" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("missing request id: %v", entry)
	}
	if entry["user_id"] != "u-1" {
		t.Fatalf("missing user id: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["login"] != "alice" {
		t.Fatalf("fields not recorded: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
