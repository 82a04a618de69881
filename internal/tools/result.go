package tools

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Result is the outcome of one tool operation.
// Success is true exactly when Error is empty; build Results with
// Success and Failure only.
type Result struct {
	Success  bool
	Data     any
	Error    string
	Metadata map[string]any
}

// Success returns a successful Result carrying data.
func Success(data any, metadata map[string]any) Result {
	return Result{Success: true, Data: data, Metadata: maps.Clone(metadata)}
}

// Failure returns a failed Result with msg as the error.
func Failure(msg string, metadata map[string]any) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{Success: false, Error: msg, Metadata: maps.Clone(metadata)}
}

// Failuref is Failure with a format string.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...), nil)
}

// FromError wraps err as a failed Result, prefixed with what.
func FromError(what string, err error) Result {
	return Failure(fmt.Sprintf("%s: %v", what, err), nil)
}

// WithMetadata returns a copy of r with key set in its metadata.
func (r Result) WithMetadata(key string, value any) Result {
	md := make(map[string]any, len(r.Metadata)+1)
	maps.Copy(md, r.Metadata)
	md[key] = value
	r.Metadata = md
	return r
}

// ToMap returns the caller-facing shape {success, data?, error?, metadata?}.
// data is omitted when nil, error when empty, metadata when empty.
func (r Result) ToMap() map[string]any {
	out := map[string]any{"success": r.Success}
	if r.Data != nil {
		out["data"] = r.Data
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if len(r.Metadata) > 0 {
		out["metadata"] = r.Metadata
	}
	return out
}

// MarshalJSON encodes the ToMap shape.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}
