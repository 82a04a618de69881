package drive

import (
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultPageSize and DefaultOrderBy apply when a ListQuery leaves them unset.
	DefaultPageSize = 100
	DefaultOrderBy  = "modifiedTime desc"

	// MaxPageSize is the largest page the Drive API serves.
	MaxPageSize = 1000
)

// Field selections. They are untyped so they convert to googleapi.Field.
const (
	listFields       = "nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime, owners, shared, parents, webViewLink)"
	DefaultGetFields = "id, name, mimeType, size, createdTime, modifiedTime, owners, shared, parents, webViewLink, description, starred, trashed"
	uploadFields     = "id, name, webViewLink, size, mimeType, createdTime"
	linkFields       = "id, name, webViewLink"
	metadataFields   = "id, name, description, starred, modifiedTime"
	permissionFields = "id, role, type, emailAddress"
	commentFields    = "id, content, author, createdTime"
	aboutFields      = "user, storageQuota, importFormats, exportFormats"
)

// ListQuery selects one page of files.
type ListQuery struct {
	// Query is a Drive search expression, e.g. "'root' in parents".
	Query     string
	PageSize  int64
	OrderBy   string
	PageToken string
}

// SearchQuery builds a Drive search expression from individual filters.
// Nil booleans leave the corresponding filter out.
type SearchQuery struct {
	Name           string
	FullText       string
	MimeType       string
	Owner          string
	SharedWithMe   *bool
	Starred        *bool
	Trashed        *bool
	ModifiedAfter  string
	ModifiedBefore string
}

// String joins the set filters with "and". It is empty when no filter is set.
func (q SearchQuery) String() string {
	var terms []string
	if q.Name != "" {
		terms = append(terms, fmt.Sprintf("name contains '%s'", escape(q.Name)))
	}
	if q.FullText != "" {
		terms = append(terms, fmt.Sprintf("fullText contains '%s'", escape(q.FullText)))
	}
	if q.MimeType != "" {
		terms = append(terms, fmt.Sprintf("mimeType='%s'", escape(q.MimeType)))
	}
	if q.Owner != "" {
		terms = append(terms, fmt.Sprintf("'%s' in owners", escape(q.Owner)))
	}
	terms = appendFlag(terms, "sharedWithMe", q.SharedWithMe)
	terms = appendFlag(terms, "starred", q.Starred)
	terms = appendFlag(terms, "trashed", q.Trashed)
	if q.ModifiedAfter != "" {
		terms = append(terms, fmt.Sprintf("modifiedTime > '%s'", escape(q.ModifiedAfter)))
	}
	if q.ModifiedBefore != "" {
		terms = append(terms, fmt.Sprintf("modifiedTime < '%s'", escape(q.ModifiedBefore)))
	}
	return strings.Join(terms, " and ")
}

func appendFlag(terms []string, name string, v *bool) []string {
	switch {
	case v == nil:
		return terms
	case *v:
		return append(terms, name)
	default:
		return append(terms, "not "+name)
	}
}

// InParents is the query matching the direct children of folderID.
func InParents(folderID string) string {
	return fmt.Sprintf("'%s' in parents", escape(folderID))
}

// escape quotes a value for use inside a single-quoted query string.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// Upload describes a file to create.
type Upload struct {
	Name        string
	Description string
	MimeType    string
	Parents     []string
	Content     []byte
}

// MetadataUpdate changes file metadata. Nil fields are left unchanged.
type MetadataUpdate struct {
	Name        *string
	Description *string
	Starred     *bool
}

// Empty reports whether the update changes nothing.
func (u MetadataUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Starred == nil
}

// Share describes a permission to grant.
type Share struct {
	// Role is one of owner, organizer, fileOrganizer, writer, commenter, reader.
	Role string

	// Type is one of user, group, domain, anyone. Empty means user.
	Type string

	EmailAddress       string
	Domain             string
	AllowFileDiscovery *bool
	SendNotification   bool
	EmailMessage       string
}

// Moved is the outcome of MoveFile.
type Moved struct {
	NewParents      []string `json:"new_parents"`
	PreviousParents []string `json:"previous_parents"`
}

// UsageAnalysis derives the usage percentage and remaining bytes from q.
// It is empty when the account has no limit or no usage.
func UsageAnalysis(q *drive.AboutStorageQuota) map[string]any {
	out := map[string]any{}
	if q == nil || q.Limit == 0 || q.Usage == 0 {
		return out
	}
	out["usage_percentage"] = float64(q.Usage) / float64(q.Limit) * 100
	out["remaining"] = q.Limit - q.Usage
	return out
}
