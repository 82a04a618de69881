package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Sizing(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"default for zero", 0, DefaultSize},
		{"default for negative", -3, DefaultSize},
		{"explicit", 3, 3},
		{"capped", 100, MaxSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New("test", tt.size).Size())
		})
	}
}

func TestDo_ReturnsResult(t *testing.T) {
	p := New("test", 2)

	err := p.Do(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)

	want := errors.New("boom")
	err = p.Do(context.Background(), func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestDo_RecoversPanic(t *testing.T) {
	p := New("test", 1)

	err := p.Do(context.Background(), func(context.Context) error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// The slot was released.
	require.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestDo_BoundsConcurrency(t *testing.T) {
	const size = 2
	p := New("test", size)

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(peak.Load()), size)
	assert.Equal(t, 0, p.InFlight())
}

func TestDo_ContextCancelledWhileQueued(t *testing.T) {
	p := New("test", 1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	p := New("test", 2)
	var finished atomic.Bool
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.True(t, finished.Load(), "shutdown returned before in-flight work completed")

	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)

	// Idempotent
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestShutdown_BoundedWait(t *testing.T) {
	p := New("slow", 1)
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "still running")
}

type countingObserver struct {
	mu     sync.Mutex
	deltas []int64
}

func (o *countingObserver) RecordPoolInFlight(_ context.Context, _ string, delta int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deltas = append(o.deltas, delta)
}

func TestObserverSeesInFlightChanges(t *testing.T) {
	obs := &countingObserver{}
	p := New("observed", 1, WithObserver(obs))

	require.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))

	// end() runs after the result is delivered, so give it a moment.
	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.deltas) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, -1}, obs.deltas)
}
