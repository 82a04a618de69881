// Package meet manages Google Meet meetings for the google_meet tool.
//
// A meeting is a Google Calendar event with a hangoutsMeet conference
// attached, so the client works on a *calendar.Service and needs no Meet
// API scope. Like the calendar package it holds no credentials; google.Auth
// builds the service and rebuilds it after every credential refresh.
//
//	svc, _ := auth.Calendar()
//	m, err := meet.NewClient(svc).Create(ctx, "primary", meet.Schedule{
//		Title:    "Discovery call",
//		Start:    start,
//		Duration: 30 * time.Minute,
//	})
//	fmt.Println(m.JoinLink)
package meet
