package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/server"
	"github.com/teemow/salesmcp/internal/tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	metricsStartupTimeout = 5 * time.Second
	httpShutdownTimeout   = 30 * time.Second
)

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

type serveOptions struct {
	transport string
	debug     bool
	httpAddr  string
	tools     []string
	metrics   MetricsConfig
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		transport      string
		httpAddr       string
		enabledTools   string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server and expose the configured integrations as tools.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

Credentials are read from the settings file and the environment. Google
tokens must exist before the server starts; they are refreshed in the
background while it runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := serveOptions{
				transport: transport,
				debug:     debugMode,
				httpAddr:  httpAddr,
				tools:     parseCommaSeparatedList(enabledTools),
				metrics: MetricsConfig{
					Enabled: metricsEnabled,
					Addr:    metricsAddr,
				},
			}
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP server address (for streamable-http transport). Defaults to 127.0.0.1:MCP_SERVER_PORT; the endpoint is unauthenticated")
	cmd.Flags().StringVar(&enabledTools, "tools", "", "Comma-separated list of tools to register (default: all)")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR when the
// matching flag was not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			config.Enabled = v == "true"
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, logger, err := loadSettings(opts.debug)
	if err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig := instrumentationConfig(settings)
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != transportStdio && opts.metrics.Enabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(opts.metrics.Addr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	serverContext := server.NewServerContext(shutdownCtx, logger)

	var (
		metrics *instrumentation.Metrics
		audit   *instrumentation.AuditLogger
	)
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(audit)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		// Shutdown metrics server first
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(ctx); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	// The shared Google credential. A missing or unusable token only leaves
	// the Google tools unconfigured.
	auth := google.NewAuth(settings, google.Options{Logger: logger, Metrics: metrics})
	serverContext.AddCleaner(auth)
	if err := auth.Initialize(shutdownCtx); err != nil {
		logger.Warn("Google authentication unavailable", logging.Err(err))
	}

	registry, err := newRegistry(settings, logger, metrics, audit, opts.tools)
	if err != nil {
		return err
	}
	serverContext.SetRegistry(registry)
	if err := registry.InitializeTools(shutdownCtx, settings, auth); err != nil {
		return fmt.Errorf("failed to initialize tools: %w", err)
	}
	registerCredentials(serverContext, auth, registry)
	if err := provider.ObserveCredentials(serverContext.CredentialTTLs); err != nil {
		logger.Warn("credential expiry gauge unavailable", logging.Err(err))
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer(settings.ServerName, version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := tools.RegisterMCP(mcpSrv, registry); err != nil {
		return err
	}

	logger.Info("starting MCP server",
		"name", settings.ServerName,
		"version", version,
		"transport", opts.transport,
		"configured_tools", configuredCount(registry.Status()))

	switch opts.transport {
	case transportStdio:
		return runStdioServer(shutdownCtx, mcpSrv)
	default:
		addr := opts.httpAddr
		if addr == "" {
			addr = defaultHTTPAddr(settings.ServerPort)
		}
		health := server.NewHealthChecker(serverContext)
		return runStreamableHTTPServer(shutdownCtx, server.NewHTTPServer(mcpSrv, health, metrics), health, addr, logger)
	}
}

// defaultHTTPAddr keeps the unauthenticated MCP endpoint on loopback unless
// --http-addr says otherwise.
func defaultHTTPAddr(port int) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

// startMetricsServer starts the Prometheus endpoint and waits until it is
// listening.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func runStreamableHTTPServer(ctx context.Context, httpServer *server.HTTPServer, health *server.HealthChecker, addr string, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

func configuredCount(status map[string]bool) int {
	n := 0
	for _, ok := range status {
		if ok {
			n++
		}
	}
	return n
}
