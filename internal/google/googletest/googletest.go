// Package googletest builds an authenticated google.Auth whose API services
// talk to test servers.
package googletest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
)

// AccessToken is the token test requests are signed with.
const AccessToken = "test-access-token"

// NewAuth returns an initialized Auth holding a valid credential. endpoints
// maps a service name (google.ServiceCalendar, ...) to a base URL; services
// without an entry keep their default endpoint. The Auth is cleaned up with t.
func NewAuth(t *testing.T, endpoints map[string]string) *google.Auth {
	t.Helper()

	dir := t.TempDir()
	settings := &config.Settings{
		GoogleTokenPath:       filepath.Join(dir, "token.json"),
		GoogleCredentialsPath: filepath.Join(dir, "credentials.json"),
		GoogleScopes:          config.DefaultGoogleScopes,
		Refresh: config.RefreshConfig{
			Interval:      time.Hour,
			RetryCooldown: time.Second,
		},
	}
	require.NoError(t, credential.WriteFile(settings.GoogleTokenPath, credential.Credential{
		AccessToken: AccessToken,
		Expiry:      time.Now().Add(time.Hour),
	}))

	clientOpts := make(map[string][]option.ClientOption, len(endpoints))
	for name, u := range endpoints {
		clientOpts[name] = []option.ClientOption{option.WithEndpoint(u)}
	}

	auth := google.NewAuth(settings, google.Options{ClientOptions: clientOpts})
	require.NoError(t, auth.Initialize(context.Background()))
	t.Cleanup(func() { auth.Cleanup(context.Background()) })
	return auth
}
