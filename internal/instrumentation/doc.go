// Package instrumentation provides OpenTelemetry instrumentation for the
// salesmcp server.
//
// # Metrics
//
// Tool dispatch:
//   - tool_invocations_total: Counter of registry dispatches by tool and status
//   - tool_duration_seconds: Histogram of tool execution durations
//   - rate_limited_total: Counter of calls rejected by the per-tool limiter
//
// Credentials and workers:
//   - credential_refresh_total: Counter of refresh attempts by provider and result
//   - workerpool_inflight: Gauge of tasks running on each worker pool
//   - credential_time_to_expiry_seconds: Gauge of access token lifetime by
//     provider, registered with Provider.ObserveCredentials
//
// Provider APIs:
//   - external_api_operations_total: Counter by service, operation, status
//   - external_api_operation_duration_seconds: Histogram of API call durations
//
// HTTP transport:
//   - http_requests_total, http_request_duration_seconds
//
// With METRICS_DETAILED_LABELS=true the tool metrics also carry the action,
// passed through BoundedAction.
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and provider API calls
// (<service>.<operation>).
//
// # Configuration
//
// DefaultConfig reads the keys below from the environment; ConfigFrom reads
// them from any Lookup, such as the settings file:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: salesmcp)
//   - PROMETHEUS_ENDPOINT (default: /metrics)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PARAMS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordToolInvocation(ctx, "calendly", "get_user", instrumentation.StatusSuccess, time.Since(start))
//	m.RecordCredentialRefresh(ctx, "google", "success")
package instrumentation
