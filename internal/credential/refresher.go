package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Provider names used in logs and metrics.
const (
	ProviderGoogle   = "google"
	ProviderCalendly = "calendly"
)

// CalendlyEndpoint is Calendly's OAuth2 endpoint. Calendly expects the client
// credentials in the form body.
var CalendlyEndpoint = oauth2.Endpoint{
	AuthURL:   "https://auth.calendly.com/oauth/authorize",
	TokenURL:  "https://auth.calendly.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// GoogleEndpoint is Google's OAuth2 endpoint.
var GoogleEndpoint = google.Endpoint

// Refresher performs a provider's refresh-token grant.
type Refresher interface {
	Refresh(ctx context.Context, c Credential) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, c Credential) (*oauth2.Token, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, c Credential) (*oauth2.Token, error) {
	return f(ctx, c)
}

// OAuth2Refresher refreshes through golang.org/x/oauth2 against Endpoint.
// A credential's TokenURI, when set, overrides Endpoint.TokenURL.
type OAuth2Refresher struct {
	Endpoint oauth2.Endpoint

	// HTTPClient is used for the token request when non-nil.
	HTTPClient *http.Client
}

// Refresh exchanges c's refresh token for a new access token.
func (r *OAuth2Refresher) Refresh(ctx context.Context, c Credential) (*oauth2.Token, error) {
	if c.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	endpoint := r.Endpoint
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}

	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       c.Scopes,
	}

	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}

	// An already expired token forces the token source to use the refresh grant.
	expired := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	tok, err := conf.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant against %s: %w", endpoint.TokenURL, err)
	}
	return tok, nil
}

// GoogleStoreConfig returns a store configuration for the shared Google credential.
func GoogleStoreConfig(path, clientID, clientSecret string, scopes []string) StoreConfig {
	return StoreConfig{
		Provider:     ProviderGoogle,
		Path:         path,
		Refresher:    &OAuth2Refresher{Endpoint: GoogleEndpoint},
		Buffer:       5 * time.Minute,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURI:     GoogleEndpoint.TokenURL,
		Scopes:       scopes,
	}
}

// CalendlyStoreConfig returns a store configuration for a Calendly credential.
// Calendly tokens live two hours; the five minute buffer matches how early
// Calendly clients treat them as stale.
func CalendlyStoreConfig(path, clientID, clientSecret string) StoreConfig {
	return StoreConfig{
		Provider:     ProviderCalendly,
		Path:         path,
		Refresher:    &OAuth2Refresher{Endpoint: CalendlyEndpoint},
		Buffer:       5 * time.Minute,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURI:     CalendlyEndpoint.TokenURL,
	}
}
