package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	testTool   = "calendly"
	testAction = "list_scheduled_events"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testTool, testAction)

	if ti.Tool != testTool || ti.Action != testAction {
		t.Errorf("got tool=%q action=%q", ti.Tool, ti.Action)
	}
	if _, err := uuid.Parse(ti.InvocationID); err != nil {
		t.Errorf("InvocationID %q is not a UUID: %v", ti.InvocationID, err)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.Complete(true, "")
	if ti.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusSuccess)
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}

	failed := NewToolInvocation(testTool, testAction).Complete(false, "Unknown action: nope")
	if failed.Status() != StatusError || failed.Error != "Unknown action: nope" {
		t.Errorf("unexpected failed invocation: %+v", failed)
	}
}

func TestToolInvocation_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewToolInvocation(testTool, testAction).InvocationID
		if seen[id] {
			t.Fatalf("duplicate invocation id %s", id)
		}
		seen[id] = true
	}
}

func TestToolInvocation_WithParams(t *testing.T) {
	ti := NewToolInvocation(testTool, testAction).WithParams(map[string]any{
		"status": "active",
		"count":  10,
	})

	if strings.Join(ti.ParamKeys, ",") != "count,status" {
		t.Errorf("ParamKeys = %v, want sorted keys", ti.ParamKeys)
	}
}

func TestToolInvocation_WithSpanContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ti := NewToolInvocation(testTool, testAction).WithSpanContext(ctx)
	if ti.TraceID != span.SpanContext().TraceID().String() {
		t.Errorf("TraceID = %q", ti.TraceID)
	}
	if ti.SpanID == "" {
		t.Error("SpanID should be set")
	}

	empty := NewToolInvocation(testTool, testAction).WithSpanContext(context.Background())
	if empty.TraceID != "" {
		t.Errorf("expected no trace id without a span, got %q", empty.TraceID)
	}
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	tests := []struct {
		name          string
		success       bool
		includeParams bool
		wantLevel     string
		wantMsg       string
	}{
		{"success", true, false, "INFO", "tool_executed"},
		{"failure", false, false, "WARN", "tool_failed"},
		{"success with params", true, true, "INFO", "tool_executed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludeParams: tt.includeParams})

			errMsg := ""
			if !tt.success {
				errMsg = "boom"
			}
			ti := NewToolInvocation(testTool, testAction).
				WithParams(map[string]any{"uuid": "secret-value"}).
				Complete(tt.success, errMsg)
			al.LogToolInvocation(ti)

			records := decodeRecords(t, &buf)
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			rec := records[0]

			if rec["level"] != tt.wantLevel || rec["msg"] != tt.wantMsg {
				t.Errorf("level=%v msg=%v", rec["level"], rec["msg"])
			}
			if rec["log_type"] != "audit" || rec["tool"] != testTool || rec["action"] != testAction {
				t.Errorf("missing audit fields: %v", rec)
			}
			if rec["invocation_id"] != ti.InvocationID {
				t.Errorf("invocation_id = %v", rec["invocation_id"])
			}
			if _, ok := rec["params"]; ok != tt.includeParams {
				t.Errorf("params present = %v, want %v", ok, tt.includeParams)
			}
			if strings.Contains(buf.String(), "secret-value") {
				t.Error("parameter values must never be logged")
			}
			if !tt.success && rec["error"] != "boom" {
				t.Errorf("error = %v", rec["error"])
			}
		})
	}
}

func TestAuditLogger_DisabledAndNil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation(testTool, testAction).Complete(true, ""))
	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testTool, testAction))
}
