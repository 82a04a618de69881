package tools

import (
	"context"
	"sort"
)

// ActionFunc implements one action of a tool.
type ActionFunc func(ctx context.Context, params map[string]any) Result

// Actions is a tool's closed dispatch table, built once in its constructor.
type Actions map[string]ActionFunc

// Names returns the action names in sorted order.
func (a Actions) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs action. An action not in the table is a failed Result,
// never a panic.
func (a Actions) Dispatch(ctx context.Context, action string, params map[string]any) Result {
	fn, ok := a[action]
	if !ok || fn == nil {
		return Failuref("Unknown action: %s", action)
	}
	if params == nil {
		params = map[string]any{}
	}
	return fn(ctx, params)
}
