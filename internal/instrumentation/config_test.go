package instrumentation

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{"OTEL_SERVICE_NAME", "INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_TRACES_SAMPLER_ARG", "AUDIT_LOGGING_ENABLED"} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	if config.ServiceName != "salesmcp" {
		t.Errorf("expected ServiceName 'salesmcp', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("expected TracingExporter 'none', got %q", config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("expected TraceSamplingRate 0.1, got %f", config.TraceSamplingRate)
	}
	if !config.AuditLogging.Enabled || config.AuditLogging.IncludeParams {
		t.Errorf("unexpected audit defaults: %+v", config.AuditLogging)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "test-service")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "otlp")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("METRICS_DETAILED_LABELS", "true")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PARAMS", "true")

	config := DefaultConfig()

	if config.ServiceName != "test-service" {
		t.Errorf("ServiceName = %q", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected Enabled false")
	}
	if config.MetricsExporter != ExporterOTLP || config.TracingExporter != ExporterStdout {
		t.Errorf("exporters = %q/%q", config.MetricsExporter, config.TracingExporter)
	}
	if config.TraceSamplingRate != 0.5 {
		t.Errorf("TraceSamplingRate = %f", config.TraceSamplingRate)
	}
	if !config.DetailedLabels || !config.AuditLogging.IncludeParams {
		t.Errorf("expected detailed labels and params: %+v", config)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1}, false},
		{"empty exporters", Config{}, false},
		{"sampling too high", Config{TraceSamplingRate: 1.5}, true},
		{"sampling negative", Config{TraceSamplingRate: -0.1}, true},
		{"bad metrics exporter", Config{MetricsExporter: "graphite"}, true},
		{"bad tracing exporter", Config{TracingExporter: "zipkin"}, true},
		{"otlp tracing without endpoint", Config{TracingExporter: ExporterOTLP}, true},
		{"otlp metrics without endpoint", Config{MetricsExporter: ExporterOTLP}, true},
		{"otlp with endpoint", Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"}, false},
		{"relative prometheus endpoint", Config{PrometheusEndpoint: "metrics"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFrom_Lookup(t *testing.T) {
	source := map[string]string{
		"METRICS_EXPORTER":        "stdout",
		"INSTRUMENTATION_ENABLED": "notabool",
		"OTEL_TRACES_SAMPLER_ARG": "0.25",
		"OTEL_SERVICE_NAME":       "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := source[key]
		return v, ok
	}

	config := ConfigFrom(lookup)

	if config.MetricsExporter != ExporterStdout {
		t.Errorf("MetricsExporter = %q", config.MetricsExporter)
	}
	if !config.Enabled {
		t.Error("invalid bool should fall back to default")
	}
	if config.TraceSamplingRate != 0.25 {
		t.Errorf("TraceSamplingRate = %f", config.TraceSamplingRate)
	}
	if config.ServiceName != "salesmcp" {
		t.Errorf("empty value should fall back to default, got %q", config.ServiceName)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q", config.TracingExporter)
	}
}
