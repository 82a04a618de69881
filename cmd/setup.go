package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/server"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/calendar_tools"
	"github.com/teemow/salesmcp/internal/tools/calendly"
	"github.com/teemow/salesmcp/internal/tools/drive_tools"
	"github.com/teemow/salesmcp/internal/tools/gmail_tools"
	"github.com/teemow/salesmcp/internal/tools/meet_tools"
)

// toolFactories lists every integration in registration order.
var toolFactories = []struct {
	name  string
	build func(tools.Deps) tools.Constructor
}{
	{config.ToolCalendly, func(d tools.Deps) tools.Constructor { return calendly.Constructor(d) }},
	{config.ToolGoogleCalendar, calendar_tools.Constructor},
	{config.ToolGoogleMeet, meet_tools.Constructor},
	{config.ToolGmail, func(d tools.Deps) tools.Constructor { return gmail_tools.Constructor(d) }},
	{config.ToolGoogleDrive, drive_tools.Constructor},
}

// loadSettings resolves the settings and builds the process logger.
// Logs always go to stderr: stdout belongs to the stdio transport and to
// command output.
func loadSettings(debug bool) (*config.Settings, *slog.Logger, error) {
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		settings.Debug = true
	}

	level := logging.ParseLevel(settings.LogLevel)
	if settings.Debug {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return settings, logger, nil
}

// constructors returns the constructors of the named tools, or of every tool
// when names is empty.
func constructors(deps tools.Deps, names []string) ([]tools.Constructor, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []tools.Constructor
	for _, f := range toolFactories {
		if len(wanted) > 0 && !wanted[f.name] {
			continue
		}
		delete(wanted, f.name)
		out = append(out, f.build(deps))
	}

	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for n := range wanted {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown tool(s): %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(config.AllTools, ", "))
	}
	return out, nil
}

// newRegistry builds the tool registry with the ambient options the settings
// ask for.
func newRegistry(settings *config.Settings, logger *slog.Logger, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger, names []string) (*tools.Registry, error) {
	ctors, err := constructors(tools.Deps{Logger: logger, Metrics: metrics}, names)
	if err != nil {
		return nil, err
	}

	opts := []tools.RegistryOption{
		tools.WithLogger(logger),
		tools.WithMetrics(metrics),
		tools.WithAuditLogger(audit),
	}
	if settings.RateLimit.Enabled && settings.RateLimit.Requests > 0 && settings.RateLimit.Window > 0 {
		opts = append(opts, tools.WithRateLimiter(tools.NewRateLimiter(settings.RateLimit.Requests, settings.RateLimit.Window)))
	}
	return tools.NewRegistry(ctors, opts...), nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// session is a registry with initialized tools for one-shot commands.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	auth     *google.Auth
	registry *tools.Registry
}

// openSession initializes the named tools, or all of them, without any
// instrumentation. Close must be called to stop refresh loops and pools.
func openSession(ctx context.Context, debug bool, names []string) (*session, error) {
	settings, logger, err := loadSettings(debug)
	if err != nil {
		return nil, err
	}

	auth := google.NewAuth(settings, google.Options{Logger: logger})
	if err := auth.Initialize(ctx); err != nil {
		logger.Debug("Google authentication unavailable", logging.Err(err))
	}

	registry, err := newRegistry(settings, logger, nil, nil, names)
	if err != nil {
		auth.Cleanup(ctx)
		return nil, err
	}
	if err := registry.InitializeTools(ctx, settings, auth); err != nil {
		auth.Cleanup(ctx)
		return nil, err
	}

	return &session{settings: settings, logger: logger, auth: auth, registry: registry}, nil
}

// Close cleans up the tools, then the shared Google auth.
func (s *session) Close(ctx context.Context) {
	s.registry.Cleanup(ctx)
	s.auth.Cleanup(ctx)
}

// instrumentationConfig resolves the instrumentation keys through the
// settings precedence, so they may also live in the "instrumentation"
// section of the settings file.
func instrumentationConfig(s *config.Settings) instrumentation.Config {
	return instrumentation.ConfigFrom(func(key string) (string, bool) {
		v, ok := s.Get(key, "instrumentation")
		if !ok || v == nil {
			return "", false
		}
		return fmt.Sprint(v), true
	})
}

// credentialOwner is implemented by tools that own their OAuth2 credential.
type credentialOwner interface {
	CredentialStore() *credential.Store
}

// registerCredentials exposes the shared Google credential and every
// tool-owned credential to the health checks and the expiry gauge.
func registerCredentials(sc *server.ServerContext, auth *google.Auth, registry *tools.Registry) {
	if auth != nil {
		sc.AddCredential(auth.Store().Provider(), auth.Store())
	}
	for name := range registry.Status() {
		t, ok := registry.Get(name)
		if !ok {
			continue
		}
		owner, ok := t.(credentialOwner)
		if !ok {
			continue
		}
		if store := owner.CredentialStore(); store != nil {
			sc.AddCredential(store.Provider(), store)
		}
	}
}
