package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
)

// ErrAlreadyInitialized is returned by a second InitializeTools call.
var ErrAlreadyInitialized = errors.New("tool registry already initialized")

type registryState int

const (
	stateEmpty registryState = iota
	stateInitializing
	stateReady
)

// ToolInfo describes a registered tool for listings.
type ToolInfo struct {
	Descriptor Descriptor
	Configured bool
}

type entry struct {
	tool       Tool
	configured bool
}

// Registry owns the set of tools, initializes them and is the single
// dispatch point for callers. No panic or fault from a tool escapes it.
type Registry struct {
	constructors []Constructor

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	limiter *RateLimiter

	mu    sync.RWMutex
	state registryState
	tools map[string]*entry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records tool invocations and rate limit rejections.
func WithMetrics(m *instrumentation.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithAuditLogger writes an audit record per dispatch.
func WithAuditLogger(a *instrumentation.AuditLogger) RegistryOption {
	return func(r *Registry) { r.audit = a }
}

// WithRateLimiter throttles dispatch per tool.
func WithRateLimiter(l *RateLimiter) RegistryOption {
	return func(r *Registry) { r.limiter = l }
}

// NewRegistry creates an empty registry that will build its tools from constructors.
func NewRegistry(constructors []Constructor, opts ...RegistryOption) *Registry {
	r := &Registry{
		constructors: constructors,
		logger:       slog.Default(),
		tools:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "tool_registry"))
	return r
}

// InitializeTools creates and initializes every tool. A tool whose
// initialization fails, returns false, or panics is still registered, as
// not configured. A constructor that panics or returns nil is skipped.
// It may be called once.
func (r *Registry) InitializeTools(ctx context.Context, settings *config.Settings, shared *google.Auth) error {
	r.mu.Lock()
	if r.state != stateEmpty {
		r.mu.Unlock()
		return ErrAlreadyInitialized
	}
	r.state = stateInitializing
	r.mu.Unlock()

	for i, construct := range r.constructors {
		t, name, err := constructTool(construct)
		if err != nil {
			r.logger.Error("tool construction failed, skipping", "constructor", i, logging.Err(err))
			continue
		}
		logger := logging.WithTool(r.logger, name)

		ok, err := initializeTool(ctx, t, settings, shared)
		configured := ok && err == nil && t.IsConfigured()

		switch {
		case err != nil:
			logger.Error("tool initialization failed", logging.Err(err))
		case !configured:
			logger.Warn("tool not configured")
		default:
			logger.Info("tool initialized")
		}

		r.mu.Lock()
		if _, dup := r.tools[name]; dup {
			r.mu.Unlock()
			logger.Error("duplicate tool name, keeping the first registration")
			r.cleanupTool(ctx, name, t)
			continue
		}
		r.tools[name] = &entry{tool: t, configured: configured}
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.state = stateReady
	count := len(r.tools)
	r.mu.Unlock()

	r.logger.Info("tool registry ready", "tools", count)
	return nil
}

// constructTool builds a tool and reads its name, turning a panic or a nil
// tool into an error.
func constructTool(construct Constructor) (t Tool, name string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			t, name = nil, ""
			err = fmt.Errorf("panic during construction: %v", rec)
		}
	}()
	t = construct()
	if t == nil {
		return nil, "", errors.New("constructor returned no tool")
	}
	return t, t.Name(), nil
}

func initializeTool(ctx context.Context, t Tool, settings *config.Settings, shared *google.Auth) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			err = fmt.Errorf("panic during initialization: %v", rec)
		}
	}()
	return t.Initialize(ctx, settings, shared)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// ExecuteTool dispatches params["action"] to the named tool.
// Every outcome, including unknown names and panics, is a Result.
func (r *Registry) ExecuteTool(ctx context.Context, name string, params map[string]any) Result {
	t, ok := r.Get(name)
	if !ok {
		return Failuref("Tool not found: %s", name)
	}

	action, ok := params["action"].(string)
	if !ok {
		return Failure("Missing required parameter: action", nil)
	}

	forwarded := make(map[string]any, len(params))
	for k, v := range params {
		if k != "action" {
			forwarded[k] = v
		}
	}

	if !r.limiter.Allow(name) {
		r.metrics.RecordRateLimited(ctx, name)
		r.logger.Warn("rate limit exceeded", logging.Tool(name), logging.Action(action))
		return Failuref("Rate limit exceeded for tool: %s", name)
	}

	ctx, span := instrumentation.StartToolSpan(ctx, name, action)
	defer span.End()

	inv := instrumentation.NewToolInvocation(name, action).WithParams(forwarded).WithSpanContext(ctx)
	start := time.Now()

	result := r.run(ctx, t, action, forwarded)

	inv.Complete(result.Success, result.Error)
	instrumentation.AnnotateToolSpan(span, inv)
	r.metrics.RecordToolInvocation(ctx, name, action, inv.Status(), time.Since(start))
	r.audit.LogToolInvocation(inv)
	r.logger.Debug("tool call finished",
		logging.Tool(name),
		logging.Action(action),
		logging.Status(inv.Status()),
		logging.Duration(inv.Duration))

	if result.Success {
		instrumentation.SetSpanSuccess(span)
	} else {
		instrumentation.SetSpanFailure(span, result.Error)
	}
	return result
}

func (r *Registry) run(ctx context.Context, t Tool, action string, params map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				logging.Tool(t.Name()),
				logging.Action(action),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
			result = Failuref("Tool execution error: %v", rec)
		}
	}()
	return t.Execute(ctx, action, params)
}

// ListTools describes every registered tool, configured or not, sorted by name.
func (r *Registry) ListTools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(r.tools))
	for _, e := range r.tools {
		infos = append(infos, ToolInfo{Descriptor: e.tool.Descriptor(), Configured: e.configured})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Descriptor.Name < infos[j].Descriptor.Name })
	return infos
}

// Status maps each tool name to whether it is configured.
func (r *Registry) Status() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]bool, len(r.tools))
	for name, e := range r.tools {
		status[name] = e.configured
	}
	return status
}

// Cleanup releases every tool and empties the registry. It is idempotent.
// The registry does not go back to empty, so it cannot be initialized again.
func (r *Registry) Cleanup(ctx context.Context) {
	r.mu.Lock()
	entries := r.tools
	r.tools = make(map[string]*entry)
	r.mu.Unlock()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.cleanupTool(ctx, name, entries[name].tool)
	}
	if len(names) > 0 {
		r.logger.Info("tool registry cleaned up", "tools", len(names))
	}
}

func (r *Registry) cleanupTool(ctx context.Context, name string, t Tool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool cleanup panicked", logging.Tool(name), "panic", fmt.Sprint(rec))
		}
	}()
	t.Cleanup(ctx)
}
