// Package meet_tools provides the google_meet tool: scheduled and instant
// Google Meet meetings, kept as calendar events on the shared Google
// credential.
package meet_tools
