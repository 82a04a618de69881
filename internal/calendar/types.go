package calendar

import (
	"errors"

	calendar "google.golang.org/api/calendar/v3"
)

// ErrMissingTimes is returned when an event has neither start_time/end_time
// nor start_date/end_date.
var ErrMissingTimes = errors.New("Either start_time/end_time or start_date/end_date required") //nolint:staticcheck // user-facing message

// SendUpdatesNone is the default guest notification mode.
const SendUpdatesNone = "none"

// EventQuery holds the optional filters of an events.list call.
// Zero values are not sent.
type EventQuery struct {
	MaxResults   int64
	TimeMin      string
	TimeMax      string
	Query        string
	SingleEvents *bool
	OrderBy      string
	PageToken    string
}

// EventInput describes the fields to set on a new or existing event.
// Nil pointers and slices leave the field untouched on update.
type EventInput struct {
	Summary     *string
	Description *string
	Location    *string

	// Timed events use StartTime/EndTime (RFC 3339), all-day events
	// StartDate/EndDate (YYYY-MM-DD). Timed wins when both pairs are set.
	StartTime string
	EndTime   string
	StartDate string
	EndDate   string

	Attendees  []string
	Reminders  *calendar.EventReminders
	Recurrence []string // RRULE, EXRULE, RDATE, EXDATE

	// AddConference attaches a new Google Meet conference.
	AddConference bool
}

// HasTimes reports whether a complete start/end pair is set.
func (in EventInput) HasTimes() bool {
	return (in.StartTime != "" && in.EndTime != "") || (in.StartDate != "" && in.EndDate != "")
}

// apply copies the set fields of in onto ev.
func (in EventInput) apply(ev *calendar.Event) {
	if in.Summary != nil {
		ev.Summary = *in.Summary
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}

	switch {
	case in.StartTime != "" && in.EndTime != "":
		ev.Start = &calendar.EventDateTime{DateTime: in.StartTime}
		ev.End = &calendar.EventDateTime{DateTime: in.EndTime}
	case in.StartDate != "" && in.EndDate != "":
		ev.Start = &calendar.EventDateTime{Date: in.StartDate}
		ev.End = &calendar.EventDateTime{Date: in.EndDate}
	}

	if in.Attendees != nil {
		attendees := make([]*calendar.EventAttendee, 0, len(in.Attendees))
		for _, email := range in.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{Email: email})
		}
		ev.Attendees = attendees
	}
	if in.Reminders != nil {
		ev.Reminders = in.Reminders
	}
	if in.Recurrence != nil {
		ev.Recurrence = in.Recurrence
	}
}

// Availability is the outcome of CheckAvailability.
type Availability struct {
	Available bool              `json:"available"`
	Events    []*calendar.Event `json:"events"`
	Count     int               `json:"count"`
}
