package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/workerpool"
)

const poolShutdownTimeout = 10 * time.Second

// ErrNotConfigured is returned by Call before a successful Initialize or after Cleanup.
var ErrNotConfigured = errors.New("tool not configured")

// GoogleService is the lifecycle shared by the Google tools. S is the API
// service type, e.g. *calendar.Service.
//
// Initialize takes the service from the shared google.Auth, creates the
// tool's pool and starts a refresh loop that swaps in the rebuilt service
// after every refresh. Cleanup undoes all of it.
type GoogleService[S any] struct {
	name     string
	service  string
	poolSize int
	deps     tools.Deps
	logger   *slog.Logger
	get      func(*google.Auth) (S, error)

	mu         sync.RWMutex
	auth       *google.Auth
	svc        S
	pool       *workerpool.Pool
	loop       *credential.RefreshLoop
	configured bool
}

// NewGoogleService creates the lifecycle for tool name. service is the API
// label used in metrics and get extracts the service from the shared auth.
func NewGoogleService[S any](name, service string, poolSize int, deps tools.Deps, get func(*google.Auth) (S, error)) *GoogleService[S] {
	return &GoogleService[S]{
		name:     name,
		service:  service,
		poolSize: poolSize,
		deps:     deps,
		logger:   logging.WithTool(deps.Log(), name),
		get:      get,
	}
}

// Logger returns the tool logger.
func (g *GoogleService[S]) Logger() *slog.Logger { return g.logger }

// Initialize returns false without an error when Google authentication is
// not available.
func (g *GoogleService[S]) Initialize(ctx context.Context, auth *google.Auth) (bool, error) {
	if auth == nil || !auth.IsAuthenticated() {
		g.logger.Warn("Google authentication not available")
		return false, nil
	}

	svc, err := g.get(auth)
	if err != nil {
		return false, fmt.Errorf("failed to get %s service: %w", g.service, err)
	}

	pool := workerpool.New(g.name, g.poolSize,
		workerpool.WithLogger(g.logger),
		workerpool.WithObserver(g.deps.Metrics))
	loop := auth.NewRefreshLoop(g.rebuild)

	g.mu.Lock()
	g.auth = auth
	g.svc = svc
	g.pool = pool
	g.loop = loop
	g.mu.Unlock()

	if err := loop.Start(context.WithoutCancel(ctx)); err != nil {
		return false, err
	}

	g.mu.Lock()
	g.configured = true
	g.mu.Unlock()

	g.logger.Info("tool initialized", logging.Service(g.service))
	return true, nil
}

// rebuild swaps in the service the auth manager built for the refreshed credential.
func (g *GoogleService[S]) rebuild(context.Context) error {
	g.mu.RLock()
	auth := g.auth
	g.mu.RUnlock()
	if auth == nil {
		return nil
	}

	svc, err := g.get(auth)
	if err != nil {
		return fmt.Errorf("failed to rebuild %s service: %w", g.service, err)
	}

	g.mu.Lock()
	g.svc = svc
	g.mu.Unlock()
	g.logger.Debug("rebuilt service after credential refresh", logging.Service(g.service))
	return nil
}

// IsConfigured reports whether Initialize succeeded and Cleanup has not run.
func (g *GoogleService[S]) IsConfigured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.configured
}

// Call runs fn with the current service on the tool's pool and records it
// as operation op.
func (g *GoogleService[S]) Call(ctx context.Context, op string, fn func(ctx context.Context, svc S) error) error {
	g.mu.RLock()
	svc, pool, ok := g.svc, g.pool, g.configured
	g.mu.RUnlock()
	if !ok {
		return ErrNotConfigured
	}

	err := tools.CallAPI(ctx, pool, g.deps.Metrics, g.service, op, func(ctx context.Context) error {
		return fn(ctx, svc)
	})
	if err != nil {
		g.logger.Debug("API call failed", logging.Operation(op), logging.Err(err))
	}
	return err
}

// Cleanup stops the refresh loop and drains the pool. It is idempotent.
func (g *GoogleService[S]) Cleanup(ctx context.Context) {
	g.mu.Lock()
	loop, pool := g.loop, g.pool
	g.loop, g.pool = nil, nil
	g.configured = false
	var zero S
	g.svc = zero
	g.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	if pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("pool did not drain", logging.Err(err))
		}
		g.logger.Info("tool cleaned up")
	}
}

// Loop returns the refresh loop, nil when not initialized.
func (g *GoogleService[S]) Loop() *credential.RefreshLoop {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loop
}
