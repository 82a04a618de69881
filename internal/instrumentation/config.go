package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: salesmcp)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// Enabled determines if instrumentation is active (default: true)
	// Set INSTRUMENTATION_ENABLED=false to disable metrics and tracing.
	Enabled bool

	// MetricsExporter is one of "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter is one of "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint without scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure uses plain HTTP for OTLP export. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// PrometheusEndpoint is the path for the Prometheus metrics endpoint (default: "/metrics")
	PrometheusEndpoint string

	// DetailedLabels adds the action label to tool metrics.
	// Keep it off in production unless the action set is known to be small.
	DetailedLabels bool

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludeParams adds the names of the parameters a tool was called with.
	// Values are never logged.
	IncludeParams bool
}

// Lookup resolves a configuration key and reports whether it is set.
type Lookup func(key string) (string, bool)

// EnvLookup reads keys from the process environment.
func EnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	return ConfigFrom(EnvLookup)
}

// ConfigFrom builds a Config from lookup. Unset, empty and unparsable values
// fall back to the defaults.
func ConfigFrom(lookup Lookup) Config {
	if lookup == nil {
		lookup = EnvLookup
	}
	v := values{lookup: lookup}
	return Config{
		ServiceName:        v.str("OTEL_SERVICE_NAME", "salesmcp"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  v.str("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:            v.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    v.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    v.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       v.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       v.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  v.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: v.str("PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     v.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:       v.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludeParams: v.boolean("AUDIT_LOGGING_INCLUDE_PARAMS", false),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}
	if c.PrometheusEndpoint != "" && !strings.HasPrefix(c.PrometheusEndpoint, "/") {
		return fmt.Errorf("prometheus endpoint %q must be an absolute path", c.PrometheusEndpoint)
	}

	return nil
}

type values struct {
	lookup Lookup
}

func (v values) str(key, def string) string {
	if s, ok := v.lookup(key); ok && s != "" {
		return s
	}
	return def
}

func (v values) boolean(key string, def bool) bool {
	parsed, err := strconv.ParseBool(v.str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return parsed
}

func (v values) float(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(v.str(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Provider API service names
	ServiceCalendly = "calendly"
	ServiceCalendar = "calendar"
	ServiceGmail    = "gmail"
	ServiceDrive    = "drive"
	ServiceSMTP     = "smtp"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	DefaultMetricInterval = 10 * time.Second
)
