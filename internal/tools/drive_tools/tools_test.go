package drive_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/google/googletest"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/batch"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	body   map[string]any
}

// fakeDrive records requests and answers from a fixed route table.
type fakeDrive struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeDrive) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeDrive) matching(method, prefix string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.method == method && strings.HasPrefix(r.path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func newConfiguredTool(t *testing.T) (*Tool, *fakeDrive) {
	t.Helper()
	f := &fakeDrive{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"files":[{"id":"f1","name":"deck.pdf"}],"nextPageToken":"next"}`))
	})
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"folder1","name":"Deals","webViewLink":"https://drive.example/folder1"}`))
	})
	mux.HandleFunc("GET /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		switch {
		case id == "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
		case r.URL.Query().Get("alt") == "media":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("quarterly numbers"))
		case r.URL.Query().Get("fields") == "parents":
			_, _ = w.Write([]byte(`{"parents":["root"]}`))
		default:
			_, _ = w.Write([]byte(`{"id":"` + id + `","name":"notes.txt","mimeType":"text/plain","size":"17"}`))
		}
	})
	mux.HandleFunc("PATCH /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "locked" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Forbidden"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + id + `","parents":["` + r.URL.Query().Get("addParents") + `"],"name":"renamed"}`))
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "locked" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Forbidden"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /files/{id}/copy", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"copy1","name":"Copy"}`))
	})
	mux.HandleFunc("POST /files/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"perm-` + r.PathValue("id") + `","role":"reader","type":"user"}`))
	})
	mux.HandleFunc("GET /files/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"permissions":[{"id":"p1","role":"owner"}]}`))
	})
	mux.HandleFunc("DELETE /files/{id}/permissions/{pid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /files/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /files/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"c1","content":"LGTM"}`))
	})
	mux.HandleFunc("GET /about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"storageQuota":{"limit":"1000","usage":"250"}}`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("uploadType") != "" {
			_, _ = w.Write([]byte(`{"id":"up1","name":"notes.txt","size":"5","mimeType":"text/plain"}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	auth := googletest.NewAuth(t, map[string]string{google.ServiceDrive: srv.URL + "/"})
	tool := New(tools.Deps{})
	ok, err := tool.Initialize(context.Background(), &config.Settings{}, auth)
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { tool.Cleanup(context.Background()) })
	return tool, f
}

func TestNotConfigured(t *testing.T) {
	tool := New(tools.Deps{})

	ok, err := tool.Initialize(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	res := tool.Execute(context.Background(), "list_files", nil)
	assert.Equal(t, "Google Drive tool not initialized", res.Error)
}

func TestFileActions(t *testing.T) {
	tool, f := newConfiguredTool(t)
	ctx := context.Background()

	t.Run("list_files by folder", func(t *testing.T) {
		res := tool.Execute(ctx, "list_files", map[string]any{"folder_id": "folder1", "page_size": float64(20)})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, 1, data["total_files"])
		assert.Equal(t, "next", data["next_page_token"])

		req := f.last()
		assert.Equal(t, "'folder1' in parents", req.query["q"])
		assert.Equal(t, "20", req.query["pageSize"])
		assert.Equal(t, "modifiedTime desc", req.query["orderBy"])
	})

	t.Run("explicit query wins over folder", func(t *testing.T) {
		res := tool.Execute(ctx, "list_files", map[string]any{"query": "starred", "folder_id": "folder1"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "starred", f.last().query["q"])
	})

	t.Run("search_files", func(t *testing.T) {
		res := tool.Execute(ctx, "search_files", map[string]any{
			"name":    "deck",
			"shared":  false,
			"trashed": false,
		})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "name contains 'deck' and not sharedWithMe and not trashed", f.last().query["q"])
	})

	t.Run("get_file not found", func(t *testing.T) {
		res := tool.Execute(ctx, "get_file", map[string]any{"file_id": "missing"})
		assert.False(t, res.Success)
		assert.True(t, strings.HasPrefix(res.Error, "Failed to get file: "), res.Error)
	})

	t.Run("get_file requires id", func(t *testing.T) {
		res := tool.Execute(ctx, "get_file", map[string]any{})
		assert.Equal(t, "Missing required parameters: file_id", res.Error)
	})

	t.Run("upload_file needs content", func(t *testing.T) {
		res := tool.Execute(ctx, "upload_file", map[string]any{"name": "notes.txt"})
		assert.Equal(t, "Must provide either 'content' or 'file_path'", res.Error)
	})

	t.Run("upload_file missing path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope.txt")
		res := tool.Execute(ctx, "upload_file", map[string]any{"name": "notes.txt", "file_path": path})
		assert.Equal(t, "File not found: "+path, res.Error)
	})

	t.Run("upload_file content", func(t *testing.T) {
		res := tool.Execute(ctx, "upload_file", map[string]any{"name": "notes.txt", "content": "hello"})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, "up1", data["file_id"])
		assert.Equal(t, true, data["uploaded"])
		assert.Equal(t, "Successfully uploaded 'notes.txt' to Google Drive", data["message"])
	})

	t.Run("download_file inline", func(t *testing.T) {
		res := tool.Execute(ctx, "download_file", map[string]any{"file_id": "f1"})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, "quarterly numbers", data["content"])
		assert.Equal(t, 17, data["size"])
		assert.NotNil(t, data["raw_content"])
	})

	t.Run("download_file to disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		res := tool.Execute(ctx, "download_file", map[string]any{"file_id": "f1", "save_path": path})
		require.True(t, res.Success, res.Error)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "quarterly numbers", string(got))
	})

	t.Run("move_file", func(t *testing.T) {
		res := tool.Execute(ctx, "move_file", map[string]any{"file_id": "f1", "new_parent_id": "folder1"})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, []string{"folder1"}, data["new_parents"])
		assert.Equal(t, []string{"root"}, data["previous_parents"])
	})

	t.Run("update_file_metadata needs a change", func(t *testing.T) {
		res := tool.Execute(ctx, "update_file_metadata", map[string]any{"file_id": "f1"})
		assert.Equal(t, "No metadata to update", res.Error)
	})

	t.Run("rename_file", func(t *testing.T) {
		params := map[string]any{"file_id": "f1", "new_name": "renamed"}
		res := tool.Execute(ctx, "rename_file", params)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "renamed", f.last().body["name"])
		assert.NotContains(t, params, "name")
	})

	t.Run("copy_file", func(t *testing.T) {
		res := tool.Execute(ctx, "copy_file", map[string]any{"file_id": "f1", "name": "Copy", "parent_ids": []any{"folder1"}})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "f1", res.Data.(map[string]any)["original_id"])
		assert.Equal(t, []any{"folder1"}, f.last().body["parents"])
	})

	t.Run("create_folder", func(t *testing.T) {
		res := tool.Execute(ctx, "create_folder", map[string]any{"name": "Deals"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, true, res.Data.(map[string]any)["created"])
		assert.Equal(t, "application/vnd.google-apps.folder", f.last().body["mimeType"])
	})

	t.Run("delete_file", func(t *testing.T) {
		res := tool.Execute(ctx, "delete_file", map[string]any{"file_id": "f1"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, map[string]any{"deleted": true, "file_id": "f1"}, res.Data)
	})
}

func TestSharingAndCollaboration(t *testing.T) {
	tool, f := newConfiguredTool(t)
	ctx := context.Background()

	t.Run("share_file defaults", func(t *testing.T) {
		res := tool.Execute(ctx, "share_file", map[string]any{"file_id": "f1", "role": "reader", "email_address": "a@example.com"})
		require.True(t, res.Success, res.Error)

		req := f.last()
		assert.Equal(t, "true", req.query["sendNotificationEmail"])
		assert.Equal(t, "user", req.body["type"])
		assert.Equal(t, "a@example.com", req.body["emailAddress"])
	})

	t.Run("list_permissions", func(t *testing.T) {
		res := tool.Execute(ctx, "list_permissions", map[string]any{"file_id": "f1"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "f1", res.Data.(map[string]any)["file_id"])
	})

	t.Run("remove_permission", func(t *testing.T) {
		res := tool.Execute(ctx, "remove_permission", map[string]any{"file_id": "f1", "permission_id": "p1"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "/files/f1/permissions/p1", f.last().path)
	})

	t.Run("add_comment accepts comment_content", func(t *testing.T) {
		res := tool.Execute(ctx, "add_comment", map[string]any{"file_id": "f1", "comment_content": "LGTM"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "LGTM", f.last().body["content"])
	})

	t.Run("add_comment requires content", func(t *testing.T) {
		res := tool.Execute(ctx, "add_comment", map[string]any{})
		assert.Equal(t, "Missing required parameters: file_id, content", res.Error)
	})

	t.Run("list_comments empty", func(t *testing.T) {
		res := tool.Execute(ctx, "list_comments", map[string]any{"file_id": "f1"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, 0, res.Data.(map[string]any)["total_comments"])
	})

	t.Run("get_quota", func(t *testing.T) {
		res := tool.Execute(ctx, "get_storage_info", nil)
		require.True(t, res.Success, res.Error)
		analysis := res.Data.(map[string]any)["usage_analysis"].(map[string]any)
		assert.InDelta(t, 25.0, analysis["usage_percentage"], 0.001)
		assert.Equal(t, int64(750), analysis["remaining"])
	})
}

func TestBatchActions(t *testing.T) {
	tool, f := newConfiguredTool(t)
	ctx := context.Background()

	t.Run("batch_delete reports partial failure", func(t *testing.T) {
		res := tool.Execute(ctx, "batch_delete", map[string]any{"file_ids": []any{"a", "locked", "b"}})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, 3, data["total_files"])
		assert.Equal(t, 2, data["successful"])
		assert.Equal(t, 1, data["failed"])

		results := data["batch_results"].([]batch.Result)
		assert.Equal(t, "locked", results[1].ID)
		assert.False(t, results[1].Success)
		assert.Contains(t, results[1].Error, "Forbidden")
	})

	t.Run("batch_delete validates ids", func(t *testing.T) {
		res := tool.Execute(ctx, "batch_delete", map[string]any{"file_ids": []any{}})
		assert.Equal(t, "file_ids cannot be empty", res.Error)
	})

	t.Run("batch_share", func(t *testing.T) {
		res := tool.Execute(ctx, "batch_share", map[string]any{
			"file_ids":          []any{"a", "b"},
			"role":              "writer",
			"type":              "domain",
			"domain":            "example.com",
			"send_notification": false,
		})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, 2, data["successful"])
		results := data["batch_results"].([]batch.Result)
		assert.Equal(t, map[string]any{"permission_id": "perm-a"}, results[0].Data)

		var shared []string
		for _, r := range f.matching(http.MethodPost, "/files/") {
			if strings.HasSuffix(r.path, "/permissions") {
				shared = append(shared, r.path)
				assert.Equal(t, "false", r.query["sendNotificationEmail"])
			}
		}
		sort.Strings(shared)
		assert.Equal(t, []string{"/files/a/permissions", "/files/b/permissions"}, shared)
	})

	t.Run("batch_move", func(t *testing.T) {
		res := tool.Execute(ctx, "batch_move", map[string]any{"file_ids": "a", "new_parent_id": "folder1"})
		require.True(t, res.Success, res.Error)
		data := res.Data.(map[string]any)
		assert.Equal(t, "folder1", data["new_parent_id"])
		assert.Equal(t, 1, data["successful"])
	})
}

func TestDescriptor(t *testing.T) {
	tool := New(tools.Deps{})
	d := tool.Descriptor()
	assert.Equal(t, Name, d.Name)

	props := d.InputSchema["properties"].(map[string]any)
	enum := props["action"].(map[string]any)["enum"].([]string)
	assert.True(t, sort.StringsAreSorted(enum))
	assert.Contains(t, enum, "batch_share")
	assert.Contains(t, enum, "get_storage_info")
	assert.Len(t, enum, 26)
}
