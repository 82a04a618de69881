package credential

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// manualTicker hands the loop a channel the test drives.
func manualTicker(l *RefreshLoop) chan time.Time {
	ch := make(chan time.Time)
	l.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ch, func() {}
	}
	return ch
}

func countingStore(calls *atomic.Int32, fail *atomic.Bool) *Store {
	return NewStore(StoreConfig{
		Provider: "test",
		Buffer:   5 * time.Minute,
		Refresher: RefresherFunc(func(context.Context, Credential) (*oauth2.Token, error) {
			calls.Add(1)
			if fail != nil && fail.Load() {
				return nil, errors.New("provider unavailable")
			}
			return &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
		}),
	})
}

// tickAndWait sends one tick and waits until the loop has picked up the next one,
// which means the previous cycle finished.
func tickAndWait(t *testing.T, ch chan time.Time) {
	t.Helper()
	select {
	case ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not accept tick")
	}
}

func TestRefreshLoop_RefreshesWhenDue(t *testing.T) {
	var calls atomic.Int32
	store := countingStore(&calls, nil)
	store.Seed(expiredCredential())

	var notified atomic.Int32
	loop := NewRefreshLoop(store, LoopConfig{
		Interval:    time.Minute,
		MinLifetime: 10 * time.Minute,
		OnRefreshed: func(context.Context) error {
			notified.Add(1)
			return nil
		},
	}, nil)
	ticks := manualTicker(loop)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	tickAndWait(t, ticks)
	// Second tick is only accepted after the first cycle returned.
	tickAndWait(t, ticks)

	assert.Equal(t, int32(1), calls.Load(), "fresh credential is not refreshed again")
	assert.Equal(t, int32(1), notified.Load())
	assert.Equal(t, "fresh", store.AccessToken())
}

func TestRefreshLoop_MinLifetime(t *testing.T) {
	var calls atomic.Int32
	store := countingStore(&calls, nil)

	c := expiredCredential()
	c.Expiry = time.Now().Add(8 * time.Minute)
	store.Seed(c)
	require.False(t, store.IsExpired())

	loop := NewRefreshLoop(store, LoopConfig{Interval: time.Minute, MinLifetime: 10 * time.Minute}, nil)
	ticks := manualTicker(loop)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	tickAndWait(t, ticks)
	tickAndWait(t, ticks)

	assert.Equal(t, int32(1), calls.Load(), "credential inside min lifetime is refreshed early")
}

func TestRefreshLoop_SharedStoreRefreshesOnce(t *testing.T) {
	var calls atomic.Int32
	store := NewStore(StoreConfig{
		Provider: "test",
		Buffer:   5 * time.Minute,
		Refresher: RefresherFunc(func(context.Context, Credential) (*oauth2.Token, error) {
			calls.Add(1)
			time.Sleep(50 * time.Millisecond)
			return &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
		}),
	})
	store.Seed(expiredCredential())

	var notified atomic.Int32
	tickers := make([]chan time.Time, 3)
	for i := range tickers {
		loop := NewRefreshLoop(store, LoopConfig{
			Interval:    time.Minute,
			MinLifetime: 10 * time.Minute,
			OnRefreshed: func(context.Context) error {
				notified.Add(1)
				return nil
			},
		}, nil)
		tickers[i] = manualTicker(loop)
		require.NoError(t, loop.Start(context.Background()))
		defer loop.Stop()
	}

	// All three cycles start while the first refresh is still in flight.
	for _, ch := range tickers {
		tickAndWait(t, ch)
	}
	for _, ch := range tickers {
		tickAndWait(t, ch)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), notified.Load(), "only the loop that refreshed notifies its owner")
}

func TestRefreshLoop_NoCallsAfterStop(t *testing.T) {
	var calls atomic.Int32
	store := countingStore(&calls, nil)
	store.Seed(expiredCredential())

	loop := NewRefreshLoop(store, LoopConfig{Interval: time.Minute}, nil)
	ticks := manualTicker(loop)
	require.NoError(t, loop.Start(context.Background()))
	assert.True(t, loop.Running())

	loop.Stop()
	assert.False(t, loop.Running())

	select {
	case ticks <- time.Now():
		t.Fatal("stopped loop accepted a tick")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(0), calls.Load())

	// Idempotent
	loop.Stop()
}

func TestRefreshLoop_StartTwice(t *testing.T) {
	store := NewStore(StoreConfig{Provider: "test"})
	loop := NewRefreshLoop(store, LoopConfig{}, nil)
	manualTicker(loop)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	assert.ErrorIs(t, loop.Start(context.Background()), ErrLoopRunning)
}

func TestRefreshLoop_RetriesOnceAfterCooldown(t *testing.T) {
	var calls atomic.Int32
	var fail atomic.Bool
	fail.Store(true)
	store := countingStore(&calls, &fail)
	store.Seed(expiredCredential())

	loop := NewRefreshLoop(store, LoopConfig{Interval: time.Minute, RetryCooldown: 10 * time.Millisecond}, nil)
	ticks := manualTicker(loop)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	tickAndWait(t, ticks)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	// Only a single retry per failed cycle.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshLoop_StopsWithContext(t *testing.T) {
	store := NewStore(StoreConfig{Provider: "test"})
	loop := NewRefreshLoop(store, LoopConfig{}, nil)
	manualTicker(loop)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, loop.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		loop.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
