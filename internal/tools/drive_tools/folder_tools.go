package drive_tools

import (
	"context"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) createFolder(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "name"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	parents, err := tools.StringSlice(params, "parent_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}

	var folder *driveapi.File
	err = t.Call(ctx, "create", func(ctx context.Context, c *drive.Client) error {
		var err error
		folder, err = c.CreateFolder(ctx,
			tools.StringDefault(params, "name", ""),
			tools.StringDefault(params, "description", ""),
			parents)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to create folder", err)
	}
	return tools.Success(map[string]any{
		"folder":  folder,
		"created": true,
	}, nil)
}

func (t *Tool) listFolderContents(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "folder_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	q := listQuery(params)
	q.Query = drive.InParents(tools.StringDefault(params, "folder_id", ""))
	return t.list(ctx, q)
}
