// Package common holds the plumbing shared by the Google tools: the cached
// API service, its worker pool and the refresh loop over the shared Google
// credential.
package common
