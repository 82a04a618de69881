package drive_tools

import (
	"context"
	"strings"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) addComment(ctx context.Context, params map[string]any) tools.Result {
	content, ok := tools.String(params, "content")
	if !ok {
		content, ok = tools.String(params, "comment_content")
	}
	var missing []string
	if _, has := params["file_id"]; !has {
		missing = append(missing, "file_id")
	}
	if !ok {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return tools.Failure("Missing required parameters: "+strings.Join(missing, ", "), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	var comment *driveapi.Comment
	err := t.Call(ctx, "create", func(ctx context.Context, c *drive.Client) error {
		var err error
		comment, err = c.AddComment(ctx, fileID, content, tools.StringDefault(params, "anchor", ""))
		return err
	})
	if err != nil {
		return tools.FromError("Failed to add comment", err)
	}
	return tools.Success(map[string]any{
		"comment": comment,
		"file_id": fileID,
	}, nil)
}

func (t *Tool) listComments(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	pageSize := int64(tools.Int(params, "page_size", drive.DefaultPageSize))

	var comments []*driveapi.Comment
	err := t.Call(ctx, "list", func(ctx context.Context, c *drive.Client) error {
		var err error
		comments, err = c.ListComments(ctx, fileID, pageSize)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list comments", err)
	}
	return tools.Success(map[string]any{
		"comments":       comments,
		"file_id":        fileID,
		"total_comments": len(comments),
	}, nil)
}

func (t *Tool) getFileRevisions(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	var revisions []*driveapi.Revision
	err := t.Call(ctx, "list", func(ctx context.Context, c *drive.Client) error {
		var err error
		revisions, err = c.ListRevisions(ctx, fileID)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get file revisions", err)
	}
	return tools.Success(map[string]any{
		"revisions": revisions,
		"file_id":   fileID,
	}, nil)
}

func (t *Tool) restoreRevision(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "revision_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	revisionID := tools.StringDefault(params, "revision_id", "")

	var modified string
	err := t.Call(ctx, "restore", func(ctx context.Context, c *drive.Client) error {
		var err error
		modified, err = c.RestoreRevision(ctx, fileID, revisionID)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to restore revision", err)
	}
	return tools.Success(map[string]any{
		"restored":          true,
		"file_id":           fileID,
		"revision_id":       revisionID,
		"new_modified_time": modified,
	}, nil)
}
