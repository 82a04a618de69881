package credential

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/salesmcp/internal/logging"
)

// Loop defaults.
const (
	DefaultLoopInterval      = 30 * time.Minute
	DefaultLoopMinLifetime   = 10 * time.Minute
	DefaultLoopRetryCooldown = 60 * time.Second
)

// LoopConfig configures a RefreshLoop.
type LoopConfig struct {
	// Interval between checks.
	Interval time.Duration

	// MinLifetime refreshes a credential that expires sooner than this,
	// even if the store does not consider it expired yet.
	MinLifetime time.Duration

	// RetryCooldown is the wait before a single retry of a failed cycle.
	// Zero disables the retry.
	RetryCooldown time.Duration

	// OnRefreshed runs after each successful refresh so the owner can
	// rebuild clients derived from the old credential.
	OnRefreshed func(ctx context.Context) error
}

// RefreshLoop periodically renews a Store's credential in the background.
// A tool owns at most one loop, starts it after initializing successfully,
// and stops it during cleanup.
type RefreshLoop struct {
	store  *Store
	cfg    LoopConfig
	logger *slog.Logger

	newTicker func(time.Duration) (<-chan time.Time, func())

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRefreshLoop creates a stopped loop for store.
func NewRefreshLoop(store *Store, cfg LoopConfig, logger *slog.Logger) *RefreshLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultLoopInterval
	}
	if cfg.MinLifetime < 0 {
		cfg.MinLifetime = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshLoop{
		store:     store,
		cfg:       cfg,
		logger:    logging.WithOperation(logging.WithProvider(logger, store.Provider()), "refresh_loop"),
		newTicker: realTicker,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start launches the loop. The loop runs until Stop is called or ctx ends.
// Starting a loop a second time returns ErrLoopRunning.
func (l *RefreshLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrLoopRunning
	}
	l.started = true

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	tick, stopTick := l.newTicker(l.cfg.Interval)
	go func() {
		defer close(l.done)
		defer stopTick()
		l.run(ctx, tick)
	}()

	l.logger.Info("started credential refresh loop", "interval", l.cfg.Interval.String())
	return nil
}

// Running reports whether the loop goroutine is active.
func (l *RefreshLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Stop cancels the loop and waits for it to exit. After Stop returns the
// loop makes no further refresh calls. Stop is idempotent.
func (l *RefreshLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info("stopped credential refresh loop")
}

func (l *RefreshLoop) run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}

		err := l.cycle(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}
		l.logger.Warn("credential refresh cycle failed", logging.Err(err))

		if l.cfg.RetryCooldown <= 0 {
			continue
		}
		timer := time.NewTimer(l.cfg.RetryCooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := l.cycle(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("credential refresh retry failed, waiting for next interval", logging.Err(err))
		}
	}
}

// cycle refreshes the credential when it is due and notifies the owner.
// A credential another loop renewed in the meantime is left alone.
func (l *RefreshLoop) cycle(ctx context.Context) error {
	refreshed, err := l.store.RefreshIfDue(ctx, l.cfg.MinLifetime)
	if err != nil {
		return err
	}
	if !refreshed {
		l.logger.Debug("credential still fresh", "time_to_expiry", l.store.TimeToExpiry().String())
		return nil
	}
	if l.cfg.OnRefreshed != nil {
		return l.cfg.OnRefreshed(ctx)
	}
	return nil
}
