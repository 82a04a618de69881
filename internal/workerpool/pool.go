package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultSize is used when a non-positive size is requested.
	DefaultSize = 2

	// MaxSize caps a single pool so one integration cannot hog the process.
	MaxSize = 16
)

// ErrPoolClosed is returned by Do after Shutdown has started.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Observer receives in-flight count changes. instrumentation.Metrics satisfies it.
type Observer interface {
	RecordPoolInFlight(ctx context.Context, pool string, delta int64)
}

// Pool runs blocking calls on a bounded number of goroutines.
// Each tool owns its own Pool so a slow integration only saturates itself.
type Pool struct {
	name     string
	size     int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	closed   atomic.Bool
	once     sync.Once
	logger   *slog.Logger
	observer Observer
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver reports in-flight changes to o.
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// New creates a pool that runs at most size calls at once.
func New(name string, size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	p := &Pool{
		name:   name,
		size:   int64(size),
		sem:    semaphore.NewWeighted(int64(size)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Size returns the maximum number of concurrent calls.
func (p *Pool) Size() int { return int(p.size) }

// InFlight returns the number of calls currently holding a slot.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Do runs fn on the pool and waits for it.
//
// If ctx is cancelled while waiting for a slot or for fn, Do returns ctx.Err()
// immediately; fn keeps its slot until it returns. A panic in fn is recovered
// and returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	// Shutdown may have started while we were queued.
	if p.closed.Load() {
		p.sem.Release(1)
		return ErrPoolClosed
	}

	done := make(chan error, 1)
	p.begin(ctx)
	go func() {
		defer p.end(ctx)
		done <- p.run(ctx, fn)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered panic in pool task", "pool", p.name, "panic", fmt.Sprint(r))
			err = fmt.Errorf("pool %s: task panicked: %v", p.name, r)
		}
	}()
	return fn(ctx)
}

func (p *Pool) begin(ctx context.Context) {
	p.inFlight.Add(1)
	if p.observer != nil {
		p.observer.RecordPoolInFlight(ctx, p.name, 1)
	}
}

func (p *Pool) end(ctx context.Context) {
	p.inFlight.Add(-1)
	if p.observer != nil {
		p.observer.RecordPoolInFlight(ctx, p.name, -1)
	}
	p.sem.Release(1)
}

// Shutdown stops accepting new work and waits for in-flight calls to finish,
// bounded by ctx. It is safe to call more than once; later calls return nil
// immediately.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		p.closed.Store(true)
		// Holding the full weight means every slot has been released.
		if acqErr := p.sem.Acquire(ctx, p.size); acqErr != nil {
			err = fmt.Errorf("pool %s: %d call(s) still running at shutdown deadline: %w", p.name, p.InFlight(), acqErr)
			return
		}
		p.sem.Release(p.size)
	})
	return err
}
