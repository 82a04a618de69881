package batch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many items Run processes at once.
const DefaultConcurrency = 4

// Result is the outcome for one id.
type Result struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Summary aggregates the results of a batch, in input order.
type Summary struct {
	Results    []Result `json:"batch_results"`
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
}

// IDs reads a non-empty list of ids from params[key]. A single string is
// one id; an array must hold only non-empty strings.
func IDs(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s is required", key)
	}

	var ids []string
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s cannot be empty", key)
		}
		ids = []string{v}
	case []string:
		ids = v
	case []any:
		ids = make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			ids = append(ids, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", key)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", key)
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", key, i)
		}
	}
	return ids, nil
}

// Run calls fn for every id with at most limit calls in flight and
// collects the outcomes. A limit <= 0 uses DefaultConcurrency. Run does
// not stop at the first failure; items not yet started when ctx is done
// fail with the context error.
func Run(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) (any, error)) Summary {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			res := Result{ID: id}
			if err := ctx.Err(); err != nil {
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			data, err := fn(ctx, id)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Success = true
				res.Data = data
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{Results: results, Total: len(ids)}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}
