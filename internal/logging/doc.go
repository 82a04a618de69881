// Package logging provides structured logging utilities for the salesmcp server.
//
// Logging uses the standard library's slog package. This package only
// centralizes attribute names and the sanitization helpers so that tool,
// credential and registry code log the same keys.
//
// # Usage Patterns
//
//	logger := logging.WithTool(slog.Default(), "calendly")
//	logger.Warn("token refresh failed",
//	    logging.Provider("calendly"),
//	    logging.Err(err))
//
// # Security Considerations
//
//   - Access and refresh tokens are never logged, only SanitizeToken markers
//   - User emails are hashed with AnonymizeEmail
package logging
