package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDs(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    []string
		wantErr string
	}{
		{name: "single string", params: map[string]any{"ids": "a"}, want: []string{"a"}},
		{name: "array", params: map[string]any{"ids": []any{"a", "b"}}, want: []string{"a", "b"}},
		{name: "string slice", params: map[string]any{"ids": []string{"a"}}, want: []string{"a"}},
		{name: "missing", params: map[string]any{}, wantErr: "ids is required"},
		{name: "empty string", params: map[string]any{"ids": " "}, wantErr: "ids cannot be empty"},
		{name: "empty array", params: map[string]any{"ids": []any{}}, wantErr: "ids cannot be empty"},
		{name: "non-string item", params: map[string]any{"ids": []any{"a", 1}}, wantErr: "ids[1] must be a string"},
		{name: "empty item", params: map[string]any{"ids": []any{"a", ""}}, wantErr: "ids[1] cannot be empty"},
		{name: "wrong type", params: map[string]any{"ids": 3}, wantErr: "ids must be a string or array of strings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IDs(tt.params, "ids")
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunKeepsOrderAndCountsFailures(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	s := Run(context.Background(), ids, 2, func(_ context.Context, id string) (any, error) {
		if id == "b" {
			return nil, errors.New("boom")
		}
		return "ok-" + id, nil
	})

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Successful)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, s.Results, 4)
	for i, id := range ids {
		assert.Equal(t, id, s.Results[i].ID)
	}
	assert.Equal(t, Result{ID: "b", Error: "boom"}, s.Results[1])
	assert.Equal(t, "ok-c", s.Results[2].Data)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	Run(context.Background(), ids, 3, func(context.Context, string) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	s := Run(ctx, []string{"a", "b"}, 1, func(context.Context, string) (any, error) {
		calls.Add(1)
		return nil, nil
	})

	assert.Zero(t, calls.Load())
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, context.Canceled.Error(), s.Results[0].Error)
}
