package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RequireParams checks that every key is present in params.
// Presence is enough; values are not inspected.
func RequireParams(params map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("Missing required parameters: %s", strings.Join(missing, ", ")) //nolint:staticcheck // user-facing message
	}
	return nil
}

// String returns params[key] when it is a non-empty string.
func String(params map[string]any, key string) (string, bool) {
	s, ok := params[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringDefault returns params[key] as a string, or def.
func StringDefault(params map[string]any, key, def string) string {
	if s, ok := String(params, key); ok {
		return s
	}
	return def
}

// Int returns params[key] as an int, or def. JSON numbers arrive as float64
// and numeric strings are accepted.
func Int(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns params[key] as a bool, or def.
func Bool(params map[string]any, key string, def bool) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// StringSlice returns params[key] as a list of strings. It accepts a single
// string, a comma separated string, or an array of strings.
func StringSlice(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings, got %T", key, raw)
	}
}

// Map returns params[key] when it is an object.
func Map(params map[string]any, key string) (map[string]any, bool) {
	m, ok := params[key].(map[string]any)
	return m, ok
}
