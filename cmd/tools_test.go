package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/drive_tools"
)

func TestParseParams(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		params, err := parseParams("")
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("inline JSON", func(t *testing.T) {
		params, err := parseParams(`{"action":"get_user","count":5}`)
		require.NoError(t, err)
		assert.Equal(t, "get_user", params["action"])
		assert.Equal(t, float64(5), params["count"])
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "params.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"file_id":"abc"}`), 0o600))

		params, err := parseParams("@" + path)
		require.NoError(t, err)
		assert.Equal(t, "abc", params["file_id"])
	})

	t.Run("null is an empty object", func(t *testing.T) {
		params, err := parseParams("null")
		require.NoError(t, err)
		assert.NotNil(t, params)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := parseParams(`["a"]`)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := parseParams("@" + filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestToolListing(t *testing.T) {
	d := drive_tools.New(tools.Deps{}).Descriptor()
	infos := []tools.ToolInfo{{Descriptor: d, Configured: false}}

	listing := toolListing(infos)
	require.Len(t, listing, 1)
	assert.Equal(t, drive_tools.Name, listing[0].Name)
	assert.False(t, listing[0].Configured)
	assert.Contains(t, listing[0].Actions, "search_files")

	var buf bytes.Buffer
	require.NoError(t, writeToolTable(&buf, infos))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TOOL"))
	assert.Contains(t, lines[1], "google_drive")
	assert.Contains(t, lines[1], "false")
}

func TestGenerateToolsMarkdown(t *testing.T) {
	ctors, err := constructors(tools.Deps{}, nil)
	require.NoError(t, err)

	var descriptors []tools.Descriptor
	for _, c := range ctors {
		descriptors = append(descriptors, c().Descriptor())
	}

	md := generateToolsMarkdown(descriptors)
	assert.True(t, strings.HasPrefix(md, "# MCP Tools Reference"))
	for _, name := range []string{"calendly", "gmail", "google_calendar", "google_drive", "google_meet"} {
		assert.Contains(t, md, "## "+name+"\n")
	}
	assert.Contains(t, md, "`restore_revision`")
	assert.NotContains(t, md, "- `action`", "action is listed separately")
	assert.Less(t, strings.Index(md, "## calendly\n"), strings.Index(md, "## google_drive\n"))
}
