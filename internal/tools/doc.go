// Package tools defines the tool contract and the registry that dispatches
// caller requests to tools.
//
// A tool exposes a closed set of actions through an Actions table. Every call
// returns a Result, never a panic or an error value: the Registry converts
// unknown tools, missing actions, rate limit rejections and panics into failed
// Results. RegisterMCP publishes the registry over the Model Context Protocol.
//
// Concrete integrations live in the calendly, calendar, gmail and drive
// subpackages. CallAPI wraps their provider calls with the worker pool,
// a client span and API metrics.
package tools
