package tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/google"
)

// Descriptor describes a tool to callers: its name, a human description and
// the JSON schema of its parameters.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Tool is one integration exposed through the registry.
//
// Initialize returns (false, nil) when the integration is simply not
// configured; an error or a panic is an unexpected fault. Either way the
// registry still registers the tool. IsConfigured does no I/O. Cleanup is
// idempotent, never panics, and releases the tool's refresh loop and pool.
type Tool interface {
	Name() string
	Descriptor() Descriptor
	Initialize(ctx context.Context, settings *config.Settings, shared *google.Auth) (bool, error)
	Execute(ctx context.Context, action string, params map[string]any) Result
	IsConfigured() bool
	Cleanup(ctx context.Context)
}

// Constructor creates an uninitialized tool.
type Constructor func() Tool

// NewDescriptor builds a Descriptor whose schema has an "action" property
// enumerating actions, plus properties. required lists parameters other than
// action that every call needs.
func NewDescriptor(name, description string, actions Actions, properties map[string]any, required ...string) Descriptor {
	props := map[string]any{
		"action": map[string]any{
			"type":        "string",
			"description": "Action to perform",
			"enum":        actions.Names(),
		},
	}
	for k, v := range properties {
		props[k] = v
	}

	req := append([]string{"action"}, required...)

	return Descriptor{
		Name:        name,
		Description: description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   req,
		},
	}
}

// Prop returns a JSON schema property of type typ.
func Prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
