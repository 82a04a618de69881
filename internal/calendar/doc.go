// Package calendar wraps the Google Calendar v3 API for the google_calendar
// tool: calendar lookups, event CRUD and a simple availability check.
//
// The client holds no credentials of its own. It is built around a
// *calendar.Service that google.Auth created and rebuilds after every
// credential refresh, so a Client is cheap and meant to be created per call:
//
//	svc, _ := auth.Calendar()
//	events, err := calendar.NewClient(svc).ListEvents(ctx, "primary", calendar.EventQuery{MaxResults: 10})
package calendar
