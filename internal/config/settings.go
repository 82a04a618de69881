package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSettingsFile is read when SETTINGS_FILE is not set.
	DefaultSettingsFile = "settings.json"

	DefaultServerName        = "sales-mcp-server"
	DefaultServerPort        = 5000
	DefaultCalendarID        = "primary"
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 60 * time.Second

	DefaultRefreshInterval         = 30 * time.Minute
	DefaultCalendlyRefreshInterval = 55 * time.Minute
	DefaultRefreshRetryCooldown    = 60 * time.Second
)

// DefaultGoogleScopes are requested for the shared Google credential.
var DefaultGoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/gmail.readonly",
}

// RateLimitConfig controls per-tool request throttling.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// RefreshConfig controls the background credential refresh loops.
type RefreshConfig struct {
	Interval         time.Duration
	CalendlyInterval time.Duration
	RetryCooldown    time.Duration
	// AllowStale lets a tool keep using an access token whose refresh failed.
	AllowStale bool
}

// Settings is the resolved server configuration.
// Every value is looked up env first, then in the settings file, then defaulted.
type Settings struct {
	SettingsFile string

	GoogleCredentialsPath   string
	GoogleTokenPath         string
	GoogleClientID          string
	GoogleClientSecret      string
	GoogleDefaultCalendarID string
	GoogleScopes            []string

	GmailEmail       string
	GmailAppPassword string

	CalendlyClientID     string
	CalendlyClientSecret string
	CalendlyAccessToken  string
	CalendlyRefreshToken string
	CalendlyTokenPath    string

	ServerName string
	ServerPort int
	LogLevel   string
	Debug      bool

	RateLimit RateLimitConfig
	Refresh   RefreshConfig

	file map[string]any
}

// Load resolves settings from the environment and the settings file at path.
// An empty path falls back to SETTINGS_FILE and then DefaultSettingsFile.
// A missing settings file is not an error; a malformed one is.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = os.Getenv("SETTINGS_FILE")
	}
	if path == "" {
		path = DefaultSettingsFile
	}

	s := &Settings{SettingsFile: path, file: map[string]any{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &s.file); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
		if s.file == nil {
			s.file = map[string]any{}
		}
	}

	s.resolve()
	return s, nil
}

func (s *Settings) resolve() {
	s.GoogleCredentialsPath = s.String("GOOGLE_CREDENTIALS_PATH", "credentials.json", "google")
	s.GoogleTokenPath = s.String("GOOGLE_TOKEN_PATH", "token.json", "google")
	s.GoogleClientID = s.String("GOOGLE_CLIENT_ID", "", "google")
	s.GoogleClientSecret = s.String("GOOGLE_CLIENT_SECRET", "", "google")
	s.GoogleDefaultCalendarID = s.String("GOOGLE_DEFAULT_CALENDAR_ID", DefaultCalendarID, "google")
	s.GoogleScopes = append([]string(nil), DefaultGoogleScopes...)

	s.GmailEmail = s.String("GMAIL_EMAIL", "", "gmail")
	s.GmailAppPassword = s.String("GMAIL_APP_PASSWORD", "", "gmail")

	s.CalendlyClientID = s.String("CALENDLY_CLIENT_ID", "", "calendly")
	s.CalendlyClientSecret = s.String("CALENDLY_CLIENT_SECRET", "", "calendly")
	s.CalendlyAccessToken = s.String("CALENDLY_ACCESS_TOKEN", "", "calendly")
	s.CalendlyRefreshToken = s.String("CALENDLY_REFRESH_TOKEN", "", "calendly")
	s.CalendlyTokenPath = s.String("CALENDLY_TOKEN_PATH", "calendly_token.json", "calendly")

	s.ServerName = s.String("MCP_SERVER_NAME", DefaultServerName, "server")
	s.ServerPort = s.Int("MCP_SERVER_PORT", DefaultServerPort, "server")
	s.LogLevel = s.String("LOG_LEVEL", "INFO", "server")
	s.Debug = s.Bool("DEBUG", false, "server")

	s.RateLimit = RateLimitConfig{
		Enabled:  s.Bool("RATE_LIMIT_ENABLED", true, "rate_limit"),
		Requests: s.Int("RATE_LIMIT_REQUESTS", DefaultRateLimitRequests, "rate_limit"),
		Window:   time.Duration(s.Int("RATE_LIMIT_WINDOW", int(DefaultRateLimitWindow/time.Second), "rate_limit")) * time.Second,
	}

	s.Refresh = RefreshConfig{
		Interval:         s.Duration("TOKEN_REFRESH_INTERVAL", DefaultRefreshInterval, "refresh"),
		CalendlyInterval: s.Duration("CALENDLY_REFRESH_INTERVAL", DefaultCalendlyRefreshInterval, "refresh"),
		RetryCooldown:    s.Duration("TOKEN_REFRESH_RETRY", DefaultRefreshRetryCooldown, "refresh"),
		AllowStale:       s.Bool("ALLOW_STALE_TOKEN_ON_REFRESH_FAILURE", true, "refresh"),
	}
}

// Get returns the raw value for key with priority env -> settings file -> not found.
// When section is non-empty the file lookup tries that section first and then
// the top level, so flat settings files work too. File keys match
// case-insensitively.
func (s *Settings) Get(key, section string) (any, bool) {
	if v, ok := os.LookupEnv(strings.ToUpper(key)); ok {
		return v, true
	}

	if section != "" {
		if sub, ok := lookupFold(s.file, section); ok {
			if m, ok := sub.(map[string]any); ok {
				if v, ok := lookupFold(m, key); ok {
					return v, true
				}
			}
		}
	}
	return lookupFold(s.file, key)
}

// String returns key as a string, or def when unset.
func (s *Settings) String(key, def, section string) string {
	v, ok := s.Get(key, section)
	if !ok || v == nil {
		return def
	}
	return fmt.Sprint(v)
}

// Int returns key as an int, or def when unset or unparsable.
func (s *Settings) Int(key string, def int, section string) int {
	v, ok := s.Get(key, section)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(v)))
	if err != nil {
		return def
	}
	return parsed
}

// Bool returns key as a bool, or def when unset or unparsable.
func (s *Settings) Bool(key string, def bool, section string) bool {
	v, ok := s.Get(key, section)
	if !ok {
		return def
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(fmt.Sprint(v)))
	if err != nil {
		return def
	}
	return parsed
}

// Duration returns key as a duration. Plain integers are read as seconds.
func (s *Settings) Duration(key string, def time.Duration, section string) time.Duration {
	v, ok := s.Get(key, section)
	if !ok {
		return def
	}
	raw := strings.TrimSpace(fmt.Sprint(v))
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// HasGoogleClientSecrets reports whether a client secrets file or explicit client credentials exist.
func (s *Settings) HasGoogleClientSecrets() bool {
	if s.GoogleClientID != "" && s.GoogleClientSecret != "" {
		return true
	}
	return fileExists(s.GoogleCredentialsPath)
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
