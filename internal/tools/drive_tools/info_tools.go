package drive_tools

import (
	"context"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) getDriveInfo(ctx context.Context, _ map[string]any) tools.Result {
	var about *driveapi.About
	err := t.Call(ctx, "get", func(ctx context.Context, c *drive.Client) error {
		var err error
		about, err = c.About(ctx)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get Drive info", err)
	}
	return tools.Success(map[string]any{
		"drive_info":     about,
		"user":           about.User,
		"storage_quota":  about.StorageQuota,
		"import_formats": about.ImportFormats,
		"export_formats": about.ExportFormats,
	}, nil)
}

func (t *Tool) getQuota(ctx context.Context, _ map[string]any) tools.Result {
	var quota *driveapi.AboutStorageQuota
	err := t.Call(ctx, "get", func(ctx context.Context, c *drive.Client) error {
		var err error
		quota, err = c.StorageQuota(ctx)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get quota info", err)
	}
	return tools.Success(map[string]any{
		"storage_quota":  quota,
		"usage_analysis": drive.UsageAnalysis(quota),
	}, nil)
}
