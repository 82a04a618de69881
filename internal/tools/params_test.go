package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireParams(t *testing.T) {
	params := map[string]any{"a": "", "b": nil}

	assert.NoError(t, RequireParams(params, "a", "b"))

	err := RequireParams(params, "a", "c", "d")
	require.Error(t, err)
	assert.Equal(t, "Missing required parameters: c, d", err.Error())
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"float from json", float64(25), 25},
		{"int", 7, 7},
		{"numeric string", " 12 ", 12},
		{"garbage", "x", 3},
		{"missing", nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]any{}
			if tt.value != nil {
				params["n"] = tt.value
			}
			assert.Equal(t, tt.want, Int(params, "n", 3))
		})
	}
}

func TestStringSlice(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{"single", "a@example.com", []string{"a@example.com"}, false},
		{"comma separated", "a, b ,,c", []string{"a", "b", "c"}, false},
		{"array", []any{"a", "b"}, []string{"a", "b"}, false},
		{"string slice", []string{"x"}, []string{"x"}, false},
		{"array with number", []any{"a", 1.0}, nil, true},
		{"wrong type", 3.0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringSlice(map[string]any{"k": tt.value}, "k")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := StringSlice(map[string]any{}, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStringAndBool(t *testing.T) {
	params := map[string]any{"s": "v", "empty": "", "b": "true", "n": 1.0}

	s, ok := String(params, "s")
	assert.True(t, ok)
	assert.Equal(t, "v", s)

	_, ok = String(params, "empty")
	assert.False(t, ok)
	assert.Equal(t, "def", StringDefault(params, "n", "def"))

	assert.True(t, Bool(params, "b", false))
	assert.True(t, Bool(params, "missing", true))

	_, ok = Map(params, "s")
	assert.False(t, ok)
}
