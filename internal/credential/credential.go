package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenLifetime is assumed when a token response carries no expiry.
const DefaultTokenLifetime = 7200 * time.Second

// Credential is a refresh-capable OAuth2 token bundle.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Expiry is always UTC. The zero value means unknown.
	Expiry time.Time
}

// fileCredential is the on-disk JSON shape.
type fileCredential struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`

	// Token is the field name google-auth uses for the access token.
	Token string `json:"token,omitempty"`
}

// CanRefresh reports whether the credential carries everything a refresh needs.
func (c Credential) CanRefresh() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Token converts the credential to an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// withToken returns a copy of c updated from a freshly issued token.
// The refresh token is only replaced when the provider rotated it.
func (c Credential) withToken(tok *oauth2.Token, now time.Time) Credential {
	next := c.clone()
	next.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	if tok.Expiry.IsZero() {
		next.Expiry = now.Add(DefaultTokenLifetime).UTC()
	} else {
		next.Expiry = tok.Expiry.UTC()
	}
	return next
}

func (c Credential) clone() Credential {
	c.Scopes = slices.Clone(c.Scopes)
	return c
}

// MarshalJSON writes the credential file format with an RFC 3339 UTC expiry.
func (c Credential) MarshalJSON() ([]byte, error) {
	fc := fileCredential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenURI:     c.TokenURI,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
	}
	if !c.Expiry.IsZero() {
		fc.Expiry = c.Expiry.UTC().Format(time.RFC3339)
	}
	return json.Marshal(fc)
}

// UnmarshalJSON reads the credential file format.
// Expiries without a zone are taken as UTC.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var fc fileCredential
	if err := json.Unmarshal(data, &fc); err != nil {
		return err
	}

	*c = Credential{
		AccessToken:  fc.AccessToken,
		RefreshToken: fc.RefreshToken,
		TokenURI:     fc.TokenURI,
		ClientID:     fc.ClientID,
		ClientSecret: fc.ClientSecret,
		Scopes:       fc.Scopes,
	}
	if c.AccessToken == "" {
		c.AccessToken = fc.Token
	}

	if fc.Expiry != "" {
		exp, err := parseExpiry(fc.Expiry)
		if err != nil {
			return fmt.Errorf("invalid expiry %q: %w", fc.Expiry, err)
		}
		c.Expiry = exp
	}
	return nil
}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// google-auth writes naive ISO timestamps such as 2024-01-02T03:04:05.123456Z
	// or without any zone suffix.
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, strings.TrimSuffix(s, "Z"), time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("expected RFC 3339 timestamp")
}

// ReadFile loads a credential file.
// The returned error wraps os.ErrNotExist when the file is missing.
func ReadFile(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, err
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}
	return c, nil
}

// WriteFile persists c to path atomically: the JSON is written to a temporary
// file in the same directory, synced, and renamed over the destination.
// A crash mid-write leaves the previous file intact.
func WriteFile(path string, c Credential) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set credential file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}
