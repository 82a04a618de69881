package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/salesmcp/internal/config"
)

// withSettingsFile points the --settings flag at a temporary file for the test.
func withSettingsFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	prev := settingsPath
	settingsPath = path
	t.Cleanup(func() { settingsPath = prev })
	return dir
}

// unsetEnv removes keys for the duration of the test. An empty variable
// would still take precedence over the settings file.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, os.Getenv(key))
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestConfigValidate(t *testing.T) {
	unsetEnv(t, "CALENDLY_ACCESS_TOKEN", "CALENDLY_REFRESH_TOKEN", "GMAIL_EMAIL", "GMAIL_APP_PASSWORD",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_TOKEN_PATH", "CALENDLY_TOKEN_PATH")

	t.Run("configured tool", func(t *testing.T) {
		dir := withSettingsFile(t, "calendly:\n  calendly_access_token: pat\n")
		t.Setenv("GOOGLE_CREDENTIALS_PATH", filepath.Join(dir, "credentials.json"))

		cmd := newConfigValidateCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--json"})
		require.NoError(t, cmd.Execute())

		var report config.ValidationReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.True(t, report.Valid)
		assert.Equal(t, []string{config.ToolCalendly}, report.ConfiguredTools)
		assert.Equal(t, 5, report.TotalTools)
	})

	t.Run("nothing configured", func(t *testing.T) {
		dir := withSettingsFile(t, "server:\n  log_level: ERROR\n")
		t.Setenv("GOOGLE_CREDENTIALS_PATH", filepath.Join(dir, "credentials.json"))

		cmd := newConfigValidateCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, out.String(), "  - calendly")
		assert.Contains(t, out.String(), "Warning: Google credentials file not found")
	})
}

func TestConfiguredProviders(t *testing.T) {
	s := &config.Settings{
		GoogleClientID:       "id",
		GoogleClientSecret:   "secret",
		CalendlyClientID:     "cid",
		CalendlyClientSecret: "csecret",
	}
	assert.Equal(t, []string{refreshGoogle, refreshCalendly}, configuredProviders(s))

	s.CalendlyClientSecret = ""
	assert.Equal(t, []string{refreshGoogle}, configuredProviders(s))
}
