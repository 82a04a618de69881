// Package google manages the OAuth2 credential shared by the Google tools.
//
// Auth loads the authorized-user token file written by the Google OAuth flow,
// keeps it valid through a credential.Store, and builds the Calendar, Gmail
// and Drive API services on top of it. Services are rebuilt after every
// successful refresh. Each Google tool starts its own refresh loop over the
// shared store with NewRefreshLoop.
package google
