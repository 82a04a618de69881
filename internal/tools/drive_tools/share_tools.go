package drive_tools

import (
	"context"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/tools"
)

func shareOptions(params map[string]any) drive.Share {
	return drive.Share{
		Role:               tools.StringDefault(params, "role", ""),
		Type:               tools.StringDefault(params, "type", "user"),
		EmailAddress:       tools.StringDefault(params, "email_address", ""),
		Domain:             tools.StringDefault(params, "domain", ""),
		AllowFileDiscovery: optBool(params, "allow_file_discovery"),
		SendNotification:   tools.Bool(params, "send_notification", true),
		EmailMessage:       tools.StringDefault(params, "email_message", ""),
	}
}

func (t *Tool) shareFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "role"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	perm, err := t.share(ctx, fileID, shareOptions(params))
	if err != nil {
		return tools.FromError("Failed to share file", err)
	}
	return tools.Success(map[string]any{
		"permission": perm,
		"file_id":    fileID,
		"shared":     true,
	}, nil)
}

func (t *Tool) share(ctx context.Context, fileID string, s drive.Share) (*driveapi.Permission, error) {
	var perm *driveapi.Permission
	err := t.Call(ctx, "share", func(ctx context.Context, c *drive.Client) error {
		var err error
		perm, err = c.ShareFile(ctx, fileID, s)
		return err
	})
	return perm, err
}

func (t *Tool) updatePermissions(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "permission_id", "role"); err != nil {
		return tools.Failure(err.Error(), nil)
	}

	var perm *driveapi.Permission
	err := t.Call(ctx, "update", func(ctx context.Context, c *drive.Client) error {
		var err error
		perm, err = c.UpdatePermission(ctx,
			tools.StringDefault(params, "file_id", ""),
			tools.StringDefault(params, "permission_id", ""),
			tools.StringDefault(params, "role", ""))
		return err
	})
	if err != nil {
		return tools.FromError("Failed to update permissions", err)
	}
	return tools.Success(map[string]any{
		"permission": perm,
		"updated":    true,
	}, nil)
}

func (t *Tool) listPermissions(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	var perms []*driveapi.Permission
	err := t.Call(ctx, "list", func(ctx context.Context, c *drive.Client) error {
		var err error
		perms, err = c.ListPermissions(ctx, fileID)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list permissions", err)
	}
	return tools.Success(map[string]any{
		"permissions": perms,
		"file_id":     fileID,
	}, nil)
}

func (t *Tool) removePermission(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "permission_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	permissionID := tools.StringDefault(params, "permission_id", "")

	err := t.Call(ctx, "delete", func(ctx context.Context, c *drive.Client) error {
		return c.RemovePermission(ctx, fileID, permissionID)
	})
	if err != nil {
		return tools.FromError("Failed to remove permission", err)
	}
	return tools.Success(map[string]any{
		"removed":       true,
		"file_id":       fileID,
		"permission_id": permissionID,
	}, nil)
}
