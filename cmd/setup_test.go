package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/server"
	"github.com/teemow/salesmcp/internal/tools"
)

func TestInstrumentationConfigFromSettingsFile(t *testing.T) {
	unsetEnv(t, "METRICS_EXPORTER", "INSTRUMENTATION_ENABLED", "OTEL_TRACES_SAMPLER_ARG")
	t.Setenv("TRACING_EXPORTER", "stdout")
	dir := withSettingsFile(t, `
instrumentation:
  metrics_exporter: stdout
  tracing_exporter: otlp
  OTEL_TRACES_SAMPLER_ARG: 0.5
  instrumentation_enabled: false
`)

	settings, err := config.Load(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)

	cfg := instrumentationConfig(settings)
	assert.Equal(t, instrumentation.ExporterStdout, cfg.MetricsExporter)
	assert.Equal(t, instrumentation.ExporterStdout, cfg.TracingExporter, "environment wins over the file")
	assert.InDelta(t, 0.5, cfg.TraceSamplingRate, 1e-9)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "salesmcp", cfg.ServiceName)
}

// storeTool is a registry tool that owns a credential store.
type storeTool struct {
	name  string
	store *credential.Store
}

func (s *storeTool) Name() string { return s.name }

func (s *storeTool) Descriptor() tools.Descriptor {
	return tools.NewDescriptor(s.name, "test tool", tools.Actions{}, nil)
}

func (s *storeTool) Initialize(context.Context, *config.Settings, *google.Auth) (bool, error) {
	return true, nil
}

func (s *storeTool) Execute(context.Context, string, map[string]any) tools.Result {
	return tools.Success(nil, nil)
}

func (s *storeTool) IsConfigured() bool { return true }

func (s *storeTool) Cleanup(context.Context) {}

func (s *storeTool) CredentialStore() *credential.Store { return s.store }

func TestRegisterCredentials(t *testing.T) {
	owned := credential.NewStore(credential.StoreConfig{
		Provider: credential.ProviderCalendly,
		Path:     filepath.Join(t.TempDir(), "calendly_token.json"),
	})
	owned.Seed(credential.Credential{AccessToken: "pat"})

	registry := tools.NewRegistry([]tools.Constructor{
		func() tools.Tool { return &storeTool{name: "with_store", store: owned} },
		func() tools.Tool { return &storeTool{name: "no_store_yet"} },
	})
	require.NoError(t, registry.InitializeTools(context.Background(), &config.Settings{}, nil))

	sc := server.NewServerContext(context.Background(), nil)
	registerCredentials(sc, nil, registry)

	creds := sc.Credentials()
	require.Len(t, creds, 1)
	assert.Same(t, owned, creds[credential.ProviderCalendly])
}
