package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NothingConfigured(t *testing.T) {
	dir := t.TempDir()
	s := &Settings{
		GoogleCredentialsPath: filepath.Join(dir, "credentials.json"),
		GoogleTokenPath:       filepath.Join(dir, "token.json"),
		CalendlyTokenPath:     filepath.Join(dir, "calendly.json"),
	}

	report := s.Validate()
	assert.False(t, report.Valid)
	assert.Empty(t, report.ConfiguredTools)
	assert.Equal(t, AllTools, report.MissingTools)
	assert.Equal(t, len(AllTools), report.TotalTools)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "Google credentials file not found")
}

func TestValidate_GoogleAndSMTP(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	token := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))

	s := &Settings{
		GoogleCredentialsPath: creds,
		GoogleTokenPath:       token,
		GmailEmail:            "sales@example.com",
		GmailAppPassword:      "app-password",
	}

	// Client secrets without a token: only SMTP gmail is usable
	report := s.Validate()
	assert.Equal(t, []string{ToolGmail}, report.ConfiguredTools)
	assert.Contains(t, report.Warnings[0], "Google token file not found")

	require.NoError(t, os.WriteFile(token, []byte("{}"), 0o600))
	report = s.Validate()
	assert.True(t, report.Valid)
	assert.Equal(t, []string{ToolGoogleCalendar, ToolGoogleMeet, ToolGmail, ToolGoogleDrive}, report.ConfiguredTools)
	assert.Equal(t, []string{ToolCalendly}, report.MissingTools)
}

func TestValidate_CalendlyWithoutRefreshTokenWarns(t *testing.T) {
	s := &Settings{CalendlyAccessToken: "tok", GoogleClientID: "id", GoogleClientSecret: "secret"}

	report := s.Validate()
	assert.Contains(t, report.ConfiguredTools, ToolCalendly)
	assert.Contains(t, report.Warnings, "Calendly refresh token not set: the access token cannot be renewed after it expires")
}
