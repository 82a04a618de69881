package drive_tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/drive"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/common"
)

// Name is the registry name of the tool.
const Name = "google_drive"

const poolSize = 2

// Tool exposes Google Drive operations.
type Tool struct {
	*common.GoogleService[*drive.Client]

	actions tools.Actions
}

// New creates an unconfigured Google Drive tool.
func New(deps tools.Deps) *Tool {
	t := &Tool{
		GoogleService: common.NewGoogleService(Name, instrumentation.ServiceDrive, poolSize, deps,
			func(a *google.Auth) (*drive.Client, error) {
				svc, err := a.Drive()
				if err != nil {
					return nil, err
				}
				return drive.NewClient(svc), nil
			}),
	}
	t.actions = tools.Actions{
		// files
		"list_files":    t.listFiles,
		"get_file":      t.getFile,
		"upload_file":   t.uploadFile,
		"download_file": t.downloadFile,
		"delete_file":   t.deleteFile,
		"copy_file":     t.copyFile,
		"move_file":     t.moveFile,
		"rename_file":   t.renameFile,

		// folders
		"create_folder":        t.createFolder,
		"list_folder_contents": t.listFolderContents,

		// sharing
		"share_file":         t.shareFile,
		"update_permissions": t.updatePermissions,
		"list_permissions":   t.listPermissions,
		"remove_permission":  t.removePermission,

		// metadata and collaboration
		"update_file_metadata": t.updateFileMetadata,
		"add_comment":          t.addComment,
		"list_comments":        t.listComments,
		"search_files":         t.searchFiles,
		"get_file_revisions":   t.getFileRevisions,
		"restore_revision":     t.restoreRevision,

		// bulk
		"batch_delete": t.batchDelete,
		"batch_move":   t.batchMove,
		"batch_share":  t.batchShare,

		// account
		"get_drive_info":   t.getDriveInfo,
		"get_quota":        t.getQuota,
		"get_storage_info": t.getQuota,
	}
	return t
}

// Constructor returns a tools.Constructor for the registry.
func Constructor(deps tools.Deps) tools.Constructor {
	return func() tools.Tool { return New(deps) }
}

func (t *Tool) Name() string { return Name }

func (t *Tool) Descriptor() tools.Descriptor {
	stringArray := func(desc string) map[string]any {
		return map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": desc,
		}
	}
	return tools.NewDescriptor(Name,
		"Google Drive file management, sharing, and collaboration operations",
		t.actions,
		map[string]any{
			"file_id":          tools.Prop("string", "Google Drive file ID"),
			"file_ids":         stringArray("Array of file IDs for batch operations"),
			"folder_id":        tools.Prop("string", "Folder ID to list contents"),
			"parent_ids":       stringArray("Parent folder IDs"),
			"new_parent_id":    tools.Prop("string", "New parent folder ID for moving files"),
			"parent_folder_id": tools.Prop("string", "Parent folder ID for uploads"),

			"name":        tools.Prop("string", "File or folder name"),
			"new_name":    tools.Prop("string", "New name for renaming"),
			"description": tools.Prop("string", "File description"),
			"starred":     tools.Prop("boolean", "Star/unstar file"),

			"content":   tools.Prop("string", "File content for upload, comment text, or full-text search term"),
			"file_path": tools.Prop("string", "Local file path for upload"),
			"save_path": tools.Prop("string", "Local save path for download"),
			"mime_type": tools.Prop("string", "MIME type for file upload or filtering"),

			"role": map[string]any{
				"type":        "string",
				"enum":        []string{"owner", "organizer", "fileOrganizer", "writer", "commenter", "reader"},
				"description": "Permission role",
			},
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{"user", "group", "domain", "anyone"},
				"description": "Permission type",
			},
			"email_address": tools.Prop("string", "Email address for sharing"),
			"domain":        tools.Prop("string", "Domain for sharing"),
			"permission_id": tools.Prop("string", "Permission ID"),
			"send_notification": map[string]any{
				"type":        "boolean",
				"description": "Send email notification",
				"default":     true,
			},
			"email_message":        tools.Prop("string", "Custom email message"),
			"allow_file_discovery": tools.Prop("boolean", "Allow file discovery"),

			"comment_content": tools.Prop("string", "Comment content"),
			"anchor":          tools.Prop("string", "Comment anchor for text selection"),

			"query":           tools.Prop("string", "Custom Drive query string"),
			"owner":           tools.Prop("string", "File owner filter"),
			"shared":          tools.Prop("boolean", "Filter shared files"),
			"trashed":         tools.Prop("boolean", "Include/exclude trashed files"),
			"modified_after":  tools.Prop("string", "Modified after date (ISO format)"),
			"modified_before": tools.Prop("string", "Modified before date (ISO format)"),

			"page_size": map[string]any{
				"type":        "integer",
				"description": "Number of results per page",
				"default":     drive.DefaultPageSize,
				"maximum":     drive.MaxPageSize,
			},
			"page_token": tools.Prop("string", "Pagination token"),
			"order_by": map[string]any{
				"type":        "string",
				"description": "Sort order (e.g., 'modifiedTime desc', 'name')",
				"default":     drive.DefaultOrderBy,
			},

			"revision_id": tools.Prop("string", "Revision ID"),
			"fields":      tools.Prop("string", "Specific fields to return"),
		})
}

// Initialize picks up the Drive service from auth.
func (t *Tool) Initialize(ctx context.Context, _ *config.Settings, auth *google.Auth) (bool, error) {
	return t.GoogleService.Initialize(ctx, auth)
}

func (t *Tool) Execute(ctx context.Context, action string, params map[string]any) tools.Result {
	if !t.IsConfigured() {
		return tools.Failure("Google Drive tool not initialized", nil)
	}
	return t.actions.Dispatch(ctx, action, params)
}

// optBool returns params[key] as a bool pointer, nil when absent.
func optBool(params map[string]any, key string) *bool {
	if _, ok := params[key]; !ok {
		return nil
	}
	b := tools.Bool(params, key, false)
	return &b
}

// optString returns params[key] as a string pointer when present, even if empty.
func optString(params map[string]any, key string) *string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

var _ tools.Tool = (*Tool)(nil)
