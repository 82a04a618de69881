package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ToolInvocation captures one registry dispatch for audit logging.
type ToolInvocation struct {
	// InvocationID uniquely identifies the call across logs and spans.
	InvocationID string

	Tool   string
	Action string

	// ParamKeys are the parameter names the call carried. Values are never kept.
	ParamKeys []string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a call to tool/action.
// Call Complete when the dispatch returns.
func NewToolInvocation(tool, action string) *ToolInvocation {
	return &ToolInvocation{
		InvocationID: uuid.NewString(),
		Tool:         tool,
		Action:       action,
		StartTime:    time.Now(),
	}
}

// WithParams records the sorted parameter names of params.
func (ti *ToolInvocation) WithParams(params map[string]any) *ToolInvocation {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ti.ParamKeys = keys
	return ti
}

// WithSpanContext copies trace identifiers from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the clock and records the outcome. errMsg is empty on success.
func (ti *ToolInvocation) Complete(success bool, errMsg string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	ti.Error = errMsg
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation.
func (ti *ToolInvocation) LogAttrs(includeParams bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.InvocationID),
		slog.String("tool", ti.Tool),
		slog.String("action", ti.Action),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if includeParams && len(ti.ParamKeys) > 0 {
		attrs = append(attrs, slog.Any("params", ti.ParamKeys))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger        *slog.Logger
	enabled       bool
	includeParams bool
}

// NewAuditLogger creates an enabled AuditLogger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:        logger.With(slog.String("log_type", "audit")),
		enabled:       config.Enabled,
		includeParams: config.IncludeParams,
	}
}

// LogToolInvocation logs ti at Info on success and Warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeParams)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
