package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActions_Dispatch(t *testing.T) {
	actions := Actions{
		"echo": func(_ context.Context, params map[string]any) Result {
			return Success(params["msg"], nil)
		},
	}

	res := actions.Dispatch(context.Background(), "echo", map[string]any{"msg": "hi"})
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Data)

	res = actions.Dispatch(context.Background(), "nope", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Unknown action: nope", res.Error)
}

func TestActions_DispatchNilParams(t *testing.T) {
	actions := Actions{
		"count": func(_ context.Context, params map[string]any) Result {
			return Success(len(params), nil)
		},
	}
	res := actions.Dispatch(context.Background(), "count", nil)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Data)
}

func TestNewDescriptor_ActionEnumFollowsTable(t *testing.T) {
	actions := Actions{"b": nil, "a": nil}
	d := NewDescriptor("demo", "Demo tool", actions, map[string]any{"id": Prop("string", "ID")})

	props := d.InputSchema["properties"].(map[string]any)
	action := props["action"].(map[string]any)
	assert.Equal(t, []string{"a", "b"}, action["enum"])
	assert.Contains(t, props, "id")
	assert.Equal(t, []string{"action"}, d.InputSchema["required"])
}
