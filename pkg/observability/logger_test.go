package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("role_type", "folder").WithError(errors.New("boom")).Error("role creation failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "role creation failed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["role_type"] != "folder" {
		t.Errorf("role_type = %v", entry["role_type"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info should be suppressed at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("warn should be emitted at warn level")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("empty context should carry no request ID, got %q", got)
	}
}
