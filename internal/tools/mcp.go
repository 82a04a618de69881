package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterMCP exposes every registered tool as one MCP tool whose input
// schema is the tool descriptor. Calls go through ExecuteTool.
func RegisterMCP(s *mcpserver.MCPServer, r *Registry) error {
	for _, info := range r.ListTools() {
		schema, err := json.Marshal(info.Descriptor.InputSchema)
		if err != nil {
			return fmt.Errorf("failed to encode schema for tool %s: %w", info.Descriptor.Name, err)
		}

		description := info.Descriptor.Description
		if !info.Configured {
			description += " (not configured)"
		}

		name := info.Descriptor.Name
		s.AddTool(mcp.NewToolWithRawSchema(name, description, schema), MCPHandler(r, name))
	}
	return nil
}

// MCPHandler returns an mcp-go handler that runs tool name through r.
func MCPHandler(r *Registry, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		if args == nil {
			args = map[string]interface{}{}
		}
		return ToMCPResult(r.ExecuteTool(ctx, name, args)), nil
	}
}

// ToMCPResult renders a Result as pretty JSON text, flagged as an error
// when the call failed.
func ToMCPResult(res Result) *mcp.CallToolResult {
	body, err := json.MarshalIndent(res.ToMap(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	out := mcp.NewToolResultText(string(body))
	out.IsError = !res.Success
	return out
}
