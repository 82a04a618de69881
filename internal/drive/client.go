package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// ErrNoContent is returned by UploadFile when the upload carries no bytes.
var ErrNoContent = errors.New("upload content is required")

// Client wraps a Google Drive service.
type Client struct {
	svc *drive.Service
}

// NewClient wraps svc.
func NewClient(svc *drive.Service) *Client {
	return &Client{svc: svc}
}

// ListFiles returns one page of files. Files is never nil.
func (c *Client) ListFiles(ctx context.Context, q ListQuery) (*drive.FileList, error) {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.OrderBy == "" {
		q.OrderBy = DefaultOrderBy
	}

	call := c.svc.Files.List().
		Context(ctx).
		PageSize(q.PageSize).
		OrderBy(q.OrderBy).
		Fields(listFields)
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, err
	}
	if list.Files == nil {
		list.Files = []*drive.File{}
	}
	return list, nil
}

// GetFile returns the metadata of fileID. Empty fields selects DefaultGetFields.
func (c *Client) GetFile(ctx context.Context, fileID, fields string) (*drive.File, error) {
	if fields == "" {
		fields = DefaultGetFields
	}
	return c.svc.Files.Get(fileID).Context(ctx).Fields(googleapi.Field(fields)).Do()
}

// UploadFile creates a file from u. The MIME type is guessed from the
// name when u leaves it empty, falling back to application/octet-stream.
func (c *Client) UploadFile(ctx context.Context, u Upload) (*drive.File, error) {
	if u.Content == nil {
		return nil, ErrNoContent
	}
	mimeType := u.MimeType
	if mimeType == "" {
		mimeType = GuessMimeType(u.Name, "application/octet-stream")
	}

	meta := &drive.File{
		Name:        u.Name,
		Description: u.Description,
		Parents:     u.Parents,
	}
	return c.svc.Files.Create(meta).
		Context(ctx).
		Media(bytes.NewReader(u.Content), googleapi.ContentType(mimeType)).
		Fields(uploadFields).
		Do()
}

// GuessMimeType returns the MIME type registered for the extension of
// name, or fallback when there is none.
func GuessMimeType(name, fallback string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return fallback
}

// DownloadFile returns the name, MIME type and size of fileID together
// with at most limit bytes of its content. truncated is set when the
// file is larger than limit. A limit <= 0 reads everything.
func (c *Client) DownloadFile(ctx context.Context, fileID string, limit int64) (meta *drive.File, content []byte, truncated bool, err error) {
	meta, err = c.svc.Files.Get(fileID).Context(ctx).Fields("name, mimeType, size").Do()
	if err != nil {
		return nil, nil, false, err
	}

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, nil, false, err
	}
	defer resp.Body.Close()

	content, truncated, err = readLimited(resp.Body, limit)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to read content: %w", err)
	}
	return meta, content, truncated, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > limit {
		return b[:limit], true, nil
	}
	return b, false, nil
}

// DeleteFile permanently deletes fileID.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.svc.Files.Delete(fileID).Context(ctx).Do()
}

// CopyFile copies fileID under a new name.
func (c *Client) CopyFile(ctx context.Context, fileID, name, description string, parents []string) (*drive.File, error) {
	return c.svc.Files.Copy(fileID, &drive.File{
		Name:        name,
		Description: description,
		Parents:     parents,
	}).Context(ctx).Fields(linkFields).Do()
}

// MoveFile replaces all parents of fileID with newParentID.
func (c *Client) MoveFile(ctx context.Context, fileID, newParentID string) (*Moved, error) {
	current, err := c.svc.Files.Get(fileID).Context(ctx).Fields("parents").Do()
	if err != nil {
		return nil, err
	}

	call := c.svc.Files.Update(fileID, &drive.File{}).
		Context(ctx).
		AddParents(newParentID).
		Fields("id, parents")
	if len(current.Parents) > 0 {
		call = call.RemoveParents(strings.Join(current.Parents, ","))
	}
	updated, err := call.Do()
	if err != nil {
		return nil, err
	}

	moved := &Moved{NewParents: updated.Parents, PreviousParents: current.Parents}
	if moved.NewParents == nil {
		moved.NewParents = []string{}
	}
	if moved.PreviousParents == nil {
		moved.PreviousParents = []string{}
	}
	return moved, nil
}

// UpdateMetadata applies u to fileID.
func (c *Client) UpdateMetadata(ctx context.Context, fileID string, u MetadataUpdate) (*drive.File, error) {
	f := &drive.File{}
	if u.Name != nil {
		f.Name = *u.Name
		f.ForceSendFields = append(f.ForceSendFields, "Name")
	}
	if u.Description != nil {
		f.Description = *u.Description
		f.ForceSendFields = append(f.ForceSendFields, "Description")
	}
	if u.Starred != nil {
		f.Starred = *u.Starred
		f.ForceSendFields = append(f.ForceSendFields, "Starred")
	}
	return c.svc.Files.Update(fileID, f).Context(ctx).Fields(metadataFields).Do()
}

// CreateFolder creates a folder under parents, or under the root when
// parents is empty.
func (c *Client) CreateFolder(ctx context.Context, name, description string, parents []string) (*drive.File, error) {
	return c.svc.Files.Create(&drive.File{
		Name:        name,
		MimeType:    FolderMimeType,
		Description: description,
		Parents:     parents,
	}).Context(ctx).Fields(linkFields).Do()
}

// ShareFile grants the permission described by s on fileID.
func (c *Client) ShareFile(ctx context.Context, fileID string, s Share) (*drive.Permission, error) {
	typ := s.Type
	if typ == "" {
		typ = "user"
	}
	perm := &drive.Permission{
		Role:         s.Role,
		Type:         typ,
		EmailAddress: s.EmailAddress,
		Domain:       s.Domain,
	}
	if s.AllowFileDiscovery != nil {
		perm.AllowFileDiscovery = *s.AllowFileDiscovery
		perm.ForceSendFields = []string{"AllowFileDiscovery"}
	}

	call := c.svc.Permissions.Create(fileID, perm).
		Context(ctx).
		SendNotificationEmail(s.SendNotification).
		Fields(permissionFields)
	if s.SendNotification && s.EmailMessage != "" {
		call = call.EmailMessage(s.EmailMessage)
	}
	return call.Do()
}

// UpdatePermission changes the role of an existing permission.
func (c *Client) UpdatePermission(ctx context.Context, fileID, permissionID, role string) (*drive.Permission, error) {
	return c.svc.Permissions.Update(fileID, permissionID, &drive.Permission{Role: role}).
		Context(ctx).
		Fields(permissionFields).
		Do()
}

// ListPermissions returns the permissions on fileID. The result is never nil.
func (c *Client) ListPermissions(ctx context.Context, fileID string) ([]*drive.Permission, error) {
	list, err := c.svc.Permissions.List(fileID).
		Context(ctx).
		Fields("permissions(id, role, type, emailAddress, displayName)").
		Do()
	if err != nil {
		return nil, err
	}
	if list.Permissions == nil {
		return []*drive.Permission{}, nil
	}
	return list.Permissions, nil
}

// RemovePermission deletes permissionID from fileID.
func (c *Client) RemovePermission(ctx context.Context, fileID, permissionID string) error {
	return c.svc.Permissions.Delete(fileID, permissionID).Context(ctx).Do()
}

// AddComment posts a comment on fileID. anchor may be empty.
func (c *Client) AddComment(ctx context.Context, fileID, content, anchor string) (*drive.Comment, error) {
	return c.svc.Comments.Create(fileID, &drive.Comment{Content: content, Anchor: anchor}).
		Context(ctx).
		Fields(commentFields).
		Do()
}

// ListComments returns up to pageSize comments on fileID. The result is never nil.
func (c *Client) ListComments(ctx context.Context, fileID string, pageSize int64) ([]*drive.Comment, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	list, err := c.svc.Comments.List(fileID).
		Context(ctx).
		PageSize(pageSize).
		Fields("comments(id, content, author, createdTime, replies)").
		Do()
	if err != nil {
		return nil, err
	}
	if list.Comments == nil {
		return []*drive.Comment{}, nil
	}
	return list.Comments, nil
}

// ListRevisions returns the revision history of fileID. The result is never nil.
func (c *Client) ListRevisions(ctx context.Context, fileID string) ([]*drive.Revision, error) {
	list, err := c.svc.Revisions.List(fileID).
		Context(ctx).
		Fields("revisions(id, modifiedTime, size, originalFilename, lastModifyingUser)").
		Do()
	if err != nil {
		return nil, err
	}
	if list.Revisions == nil {
		return []*drive.Revision{}, nil
	}
	return list.Revisions, nil
}

// RestoreRevision uploads the content of revisionID as the newest
// version of fileID and returns the new modification time.
func (c *Client) RestoreRevision(ctx context.Context, fileID, revisionID string) (string, error) {
	resp, err := c.svc.Revisions.Get(fileID, revisionID).Context(ctx).Download()
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read revision: %w", err)
	}

	f, err := c.svc.Files.Update(fileID, &drive.File{}).
		Context(ctx).
		Media(bytes.NewReader(content)).
		Fields("id, modifiedTime").
		Do()
	if err != nil {
		return "", err
	}
	return f.ModifiedTime, nil
}

// About returns the user, storage quota and conversion formats.
func (c *Client) About(ctx context.Context) (*drive.About, error) {
	return c.svc.About.Get().Context(ctx).Fields(aboutFields).Do()
}

// StorageQuota returns the storage quota of the account.
func (c *Client) StorageQuota(ctx context.Context) (*drive.AboutStorageQuota, error) {
	about, err := c.svc.About.Get().Context(ctx).Fields("storageQuota").Do()
	if err != nil {
		return nil, err
	}
	if about.StorageQuota == nil {
		return &drive.AboutStorageQuota{}, nil
	}
	return about.StorageQuota, nil
}
