// Package credential manages OAuth2 credentials for the server's providers.
//
// A Store owns one credential. It loads the credential from a JSON file in
// the layout google-auth writes, decides when the access token is expired
// (with a safety buffer), and exchanges the refresh token for a new one.
// A successful refresh replaces the credential in memory and rewrites the
// file atomically; a failed refresh changes nothing.
//
// Refreshes are serialized per store and run on a bounded workerpool.Pool
// so they never block the caller's goroutine pool beyond the configured size.
// EnsureValid is the single entry point tools call before touching a
// provider API; TokenSource wraps it for golang.org/x/oauth2 based clients.
//
// A RefreshLoop renews a credential in the background so requests rarely pay
// for a refresh. Stop guarantees that no refresh call happens after it returns.
package credential
