package drive_tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/batch"
)

// batchConcurrency matches the pool size.
const batchConcurrency = poolSize

func batchResult(s batch.Summary, extra map[string]any) tools.Result {
	data := map[string]any{
		"batch_results": s.Results,
		"total_files":   s.Total,
		"successful":    s.Successful,
		"failed":        s.Failed,
	}
	for k, v := range extra {
		data[k] = v
	}
	return tools.Success(data, nil)
}

func (t *Tool) batchDelete(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_ids"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	ids, err := batch.IDs(params, "file_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}

	s := batch.Run(ctx, ids, batchConcurrency, func(ctx context.Context, id string) (any, error) {
		return nil, t.delete(ctx, id)
	})
	return batchResult(s, nil)
}

func (t *Tool) batchMove(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_ids", "new_parent_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	ids, err := batch.IDs(params, "file_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	parent := tools.StringDefault(params, "new_parent_id", "")

	s := batch.Run(ctx, ids, batchConcurrency, func(ctx context.Context, id string) (any, error) {
		_, err := t.move(ctx, id, parent)
		return nil, err
	})
	return batchResult(s, map[string]any{"new_parent_id": parent})
}

func (t *Tool) batchShare(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_ids", "role"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	ids, err := batch.IDs(params, "file_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	opts := shareOptions(params)

	s := batch.Run(ctx, ids, batchConcurrency, func(ctx context.Context, id string) (any, error) {
		perm, err := t.share(ctx, id, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"permission_id": perm.Id}, nil
	})
	return batchResult(s, map[string]any{
		"sharing_config": map[string]any{
			"role":          opts.Role,
			"type":          opts.Type,
			"email_address": opts.EmailAddress,
		},
	})
}
