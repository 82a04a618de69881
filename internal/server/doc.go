// Package server holds the runtime pieces around the MCP server: the
// ServerContext that owns shutdown of the tool registry and shared
// resources, health endpoints, the streamable HTTP transport, and a
// dedicated Prometheus metrics server.
//
// # Health
//
//   - /healthz: liveness, always ok while the process runs
//   - /readyz: ready flag and shutdown state
//   - /healthz/detailed: uptime plus every registered tool and whether it is configured
package server
