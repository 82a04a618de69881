package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/instrumentation"
)

// ToolRegistry is the part of tools.Registry the server depends on.
type ToolRegistry interface {
	Status() map[string]bool
	Cleanup(ctx context.Context)
}

// Cleaner releases a shared resource during shutdown, e.g. the Google auth manager.
type Cleaner interface {
	Cleanup(ctx context.Context)
}

// CredentialSource reports the state of an OAuth2 credential, typically a
// *credential.Store.
type CredentialSource interface {
	State() credential.State
	TimeToExpiry() time.Duration
}

// ServerContext holds the long-lived dependencies of a running server and
// owns their shutdown.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu          sync.RWMutex
	registry    ToolRegistry
	cleaners    []Cleaner
	credentials map[string]CredentialSource
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	shutdown    bool
}

// NewServerContext creates a server context derived from ctx.
func NewServerContext(ctx context.Context, logger *slog.Logger) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		logger: logger,
	}
}

// Context returns the server context. It is cancelled by Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// SetRegistry attaches the tool registry.
func (sc *ServerContext) SetRegistry(r ToolRegistry) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.registry = r
}

// Registry returns the attached tool registry, or nil.
func (sc *ServerContext) Registry() ToolRegistry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// AddCleaner registers c to be cleaned up after the registry on Shutdown.
func (sc *ServerContext) AddCleaner(c Cleaner) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cleaners = append(sc.cleaners, c)
}

// AddCredential reports src under provider in health checks and metrics.
// A later call for the same provider replaces the source.
func (sc *ServerContext) AddCredential(provider string, src CredentialSource) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.credentials == nil {
		sc.credentials = make(map[string]CredentialSource)
	}
	sc.credentials[provider] = src
}

// Credentials returns a copy of the registered credential sources.
func (sc *ServerContext) Credentials() map[string]CredentialSource {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make(map[string]CredentialSource, len(sc.credentials))
	for name, src := range sc.credentials {
		out[name] = src
	}
	return out
}

// CredentialTTLs returns the remaining access token lifetime per provider.
func (sc *ServerContext) CredentialTTLs() map[string]time.Duration {
	sources := sc.Credentials()
	out := make(map[string]time.Duration, len(sources))
	for name, src := range sources {
		out[name] = src.TimeToExpiry()
	}
	return out
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// ToolStatus returns name -> configured for every registered tool.
func (sc *ServerContext) ToolStatus() map[string]bool {
	r := sc.Registry()
	if r == nil {
		return map[string]bool{}
	}
	return r.Status()
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cleans up the registry, then every registered cleaner, and cancels
// the server context. Panics from cleanup are recovered and returned.
// A second call is a no-op.
func (sc *ServerContext) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	registry := sc.registry
	cleaners := append([]Cleaner(nil), sc.cleaners...)
	sc.mu.Unlock()

	defer sc.cancel()

	var errs []error
	if registry != nil {
		errs = append(errs, safeCleanup("tool registry", func() { registry.Cleanup(ctx) }))
	}
	for _, c := range cleaners {
		errs = append(errs, safeCleanup("shared resource", func() { c.Cleanup(ctx) }))
	}

	err := errors.Join(errs...)
	if err != nil {
		sc.logger.Error("server shutdown finished with errors", "error", err)
	}
	return err
}

func safeCleanup(what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s cleanup: %v", what, r)
		}
	}()
	fn()
	return nil
}
