// Package cmd implements the command-line interface for salesmcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide tools for AI assistants
//   - tools list: Show every tool and whether it is configured
//   - tools call: Run one tool action through the registry and print the result
//   - authorize: Run the OAuth2 consent flow for Google or Calendly and write the token file
//   - refresh: Refresh and persist the Google and Calendly OAuth2 credentials
//   - config validate: Report which integrations have enough configuration
//   - generate-docs: Generate markdown documentation for all tools
//   - version: Display version information
package cmd
