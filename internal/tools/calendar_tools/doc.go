// Package calendar_tools provides the google_calendar tool: calendar lookups,
// event management and availability checks over the shared Google credential.
package calendar_tools
