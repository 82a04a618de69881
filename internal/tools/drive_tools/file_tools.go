package drive_tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/tools"
)

const (
	// maxInlineDownload is the largest file download_file returns in the result.
	maxInlineDownload = 1 << 20
	// maxRawContent is the largest file whose bytes are also returned base64 encoded.
	maxRawContent = 10 << 10
)

func (t *Tool) listFiles(ctx context.Context, params map[string]any) tools.Result {
	q := listQuery(params)
	if q.Query == "" {
		if folder, ok := tools.String(params, "folder_id"); ok {
			q.Query = drive.InParents(folder)
		} else if mimeType, ok := tools.String(params, "mime_type"); ok {
			q.Query = drive.SearchQuery{MimeType: mimeType}.String()
		}
	}
	return t.list(ctx, q)
}

func listQuery(params map[string]any) drive.ListQuery {
	return drive.ListQuery{
		Query:     tools.StringDefault(params, "query", ""),
		PageSize:  int64(tools.Int(params, "page_size", drive.DefaultPageSize)),
		OrderBy:   tools.StringDefault(params, "order_by", drive.DefaultOrderBy),
		PageToken: tools.StringDefault(params, "page_token", ""),
	}
}

func (t *Tool) list(ctx context.Context, q drive.ListQuery) tools.Result {
	var list *driveapi.FileList
	err := t.Call(ctx, "list", func(ctx context.Context, c *drive.Client) error {
		var err error
		list, err = c.ListFiles(ctx, q)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list files", err)
	}

	var next any
	if list.NextPageToken != "" {
		next = list.NextPageToken
	}
	return tools.Success(map[string]any{
		"files":           list.Files,
		"next_page_token": next,
		"total_files":     len(list.Files),
	}, nil)
}

func (t *Tool) getFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	fields := tools.StringDefault(params, "fields", drive.DefaultGetFields)

	var file *driveapi.File
	err := t.Call(ctx, "get", func(ctx context.Context, c *drive.Client) error {
		var err error
		file, err = c.GetFile(ctx, fileID, fields)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get file", err)
	}
	return tools.Success(file, nil)
}

func (t *Tool) uploadFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "name"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	content, hasContent := params["content"]
	path, hasPath := tools.String(params, "file_path")
	if !hasContent && !hasPath {
		return tools.Failure("Must provide either 'content' or 'file_path'", nil)
	}

	name := tools.StringDefault(params, "name", "")
	up := drive.Upload{
		Name:        name,
		Description: tools.StringDefault(params, "description", ""),
		MimeType:    tools.StringDefault(params, "mime_type", ""),
	}
	if parent, ok := tools.String(params, "parent_folder_id"); ok {
		up.Parents = []string{parent}
	}

	if hasContent {
		s, _ := content.(string)
		up.Content = []byte(s)
		if up.MimeType == "" {
			up.MimeType = drive.GuessMimeType(name, "text/plain")
		}
	} else {
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return tools.Failure("File not found: "+path, nil)
		}
		if err != nil {
			return tools.FromError("Error reading file", err)
		}
		up.Content = b
	}

	t.Logger().Info("uploading file", "size", len(up.Content))

	var file *driveapi.File
	err := t.Call(ctx, "upload", func(ctx context.Context, c *drive.Client) error {
		var err error
		file, err = c.UploadFile(ctx, up)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to upload file", err)
	}

	return tools.Success(map[string]any{
		"file_id":       file.Id,
		"name":          file.Name,
		"web_view_link": file.WebViewLink,
		"download_link": file.WebViewLink,
		"size":          file.Size,
		"mime_type":     file.MimeType,
		"created_time":  file.CreatedTime,
		"uploaded":      true,
		"message":       fmt.Sprintf("Successfully uploaded '%s' to Google Drive", name),
	}, nil)
}

func (t *Tool) downloadFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	savePath, save := tools.String(params, "save_path")

	var limit int64 = maxInlineDownload
	if save {
		limit = 0
	}

	var (
		meta      *driveapi.File
		content   []byte
		truncated bool
	)
	err := t.Call(ctx, "download", func(ctx context.Context, c *drive.Client) error {
		var err error
		meta, content, truncated, err = c.DownloadFile(ctx, fileID, limit)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to download file", err)
	}

	if save {
		if err := os.WriteFile(savePath, content, 0o600); err != nil {
			return tools.FromError("Failed to download file", err)
		}
		return tools.Success(map[string]any{
			"file_info": meta,
			"saved_to":  savePath,
			"size":      len(content),
		}, nil)
	}

	if truncated {
		return tools.Success(map[string]any{
			"file_info": meta,
			"message":   "File too large to return content directly. Use save_path parameter.",
			"size":      meta.Size,
		}, nil)
	}

	var text, raw any
	if strings.HasPrefix(meta.MimeType, "text/") {
		text = string(content)
	}
	if len(content) <= maxRawContent {
		raw = base64.StdEncoding.EncodeToString(content)
	}
	return tools.Success(map[string]any{
		"file_info":   meta,
		"content":     text,
		"raw_content": raw,
		"size":        len(content),
	}, nil)
}

func (t *Tool) deleteFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	if err := t.delete(ctx, fileID); err != nil {
		return tools.FromError("Failed to delete file", err)
	}
	return tools.Success(map[string]any{
		"deleted": true,
		"file_id": fileID,
	}, nil)
}

func (t *Tool) delete(ctx context.Context, fileID string) error {
	return t.Call(ctx, "delete", func(ctx context.Context, c *drive.Client) error {
		return c.DeleteFile(ctx, fileID)
	})
}

func (t *Tool) copyFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "name"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")
	parents, err := tools.StringSlice(params, "parent_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}

	var copied *driveapi.File
	err = t.Call(ctx, "copy", func(ctx context.Context, c *drive.Client) error {
		var err error
		copied, err = c.CopyFile(ctx, fileID,
			tools.StringDefault(params, "name", ""),
			tools.StringDefault(params, "description", ""),
			parents)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to copy file", err)
	}
	return tools.Success(map[string]any{
		"copied_file": copied,
		"original_id": fileID,
	}, nil)
}

func (t *Tool) moveFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "new_parent_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	fileID := tools.StringDefault(params, "file_id", "")

	moved, err := t.move(ctx, fileID, tools.StringDefault(params, "new_parent_id", ""))
	if err != nil {
		return tools.FromError("Failed to move file", err)
	}
	return tools.Success(map[string]any{
		"moved":            true,
		"file_id":          fileID,
		"new_parents":      moved.NewParents,
		"previous_parents": moved.PreviousParents,
	}, nil)
}

func (t *Tool) move(ctx context.Context, fileID, newParentID string) (*drive.Moved, error) {
	var moved *drive.Moved
	err := t.Call(ctx, "move", func(ctx context.Context, c *drive.Client) error {
		var err error
		moved, err = c.MoveFile(ctx, fileID, newParentID)
		return err
	})
	return moved, err
}

func (t *Tool) updateFileMetadata(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	return t.updateMetadata(ctx, tools.StringDefault(params, "file_id", ""), drive.MetadataUpdate{
		Name:        optString(params, "name"),
		Description: optString(params, "description"),
		Starred:     optBool(params, "starred"),
	})
}

func (t *Tool) renameFile(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "file_id", "new_name"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	return t.updateMetadata(ctx, tools.StringDefault(params, "file_id", ""), drive.MetadataUpdate{
		Name:        optString(params, "new_name"),
		Description: optString(params, "description"),
		Starred:     optBool(params, "starred"),
	})
}

func (t *Tool) updateMetadata(ctx context.Context, fileID string, u drive.MetadataUpdate) tools.Result {
	if u.Empty() {
		return tools.Failure("No metadata to update", nil)
	}

	var file *driveapi.File
	err := t.Call(ctx, "update", func(ctx context.Context, c *drive.Client) error {
		var err error
		file, err = c.UpdateMetadata(ctx, fileID, u)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to update file metadata", err)
	}
	return tools.Success(map[string]any{
		"file":    file,
		"updated": true,
	}, nil)
}

func (t *Tool) searchFiles(ctx context.Context, params map[string]any) tools.Result {
	q := listQuery(params)
	q.Query = drive.SearchQuery{
		Name:           tools.StringDefault(params, "name", ""),
		FullText:       tools.StringDefault(params, "content", ""),
		MimeType:       tools.StringDefault(params, "mime_type", ""),
		Owner:          tools.StringDefault(params, "owner", ""),
		SharedWithMe:   optBool(params, "shared"),
		Starred:        optBool(params, "starred"),
		Trashed:        optBool(params, "trashed"),
		ModifiedAfter:  tools.StringDefault(params, "modified_after", ""),
		ModifiedBefore: tools.StringDefault(params, "modified_before", ""),
	}.String()
	return t.list(ctx, q)
}
