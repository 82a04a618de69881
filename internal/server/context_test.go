package server

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	status   map[string]bool
	cleanups atomic.Int32
	panics   bool
}

func (f *fakeRegistry) Status() map[string]bool { return f.status }

func (f *fakeRegistry) Cleanup(context.Context) {
	f.cleanups.Add(1)
	if f.panics {
		panic("registry exploded")
	}
}

type fakeCleaner struct{ calls atomic.Int32 }

func (f *fakeCleaner) Cleanup(context.Context) { f.calls.Add(1) }

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	reg := &fakeRegistry{status: map[string]bool{"calendly": true}}
	shared := &fakeCleaner{}
	sc.SetRegistry(reg)
	sc.AddCleaner(shared)

	assert.False(t, sc.IsShutdown())
	assert.Equal(t, map[string]bool{"calendly": true}, sc.ToolStatus())

	require.NoError(t, sc.Shutdown(context.Background()))
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err(), "context is cancelled")
	assert.Equal(t, int32(1), reg.cleanups.Load())
	assert.Equal(t, int32(1), shared.calls.Load())

	// Idempotent
	require.NoError(t, sc.Shutdown(context.Background()))
	assert.Equal(t, int32(1), reg.cleanups.Load())
	assert.Equal(t, int32(1), shared.calls.Load())
}

func TestServerContext_ShutdownRecoversPanics(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	shared := &fakeCleaner{}
	sc.SetRegistry(&fakeRegistry{panics: true})
	sc.AddCleaner(shared)

	err := sc.Shutdown(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "registry exploded"))
	assert.Equal(t, int32(1), shared.calls.Load(), "later cleaners still run")
	assert.Error(t, sc.Context().Err())
}

func TestServerContext_NoRegistry(t *testing.T) {
	sc := NewServerContext(context.Background(), nil)
	assert.Empty(t, sc.ToolStatus())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	require.NoError(t, sc.Shutdown(context.Background()))
}
