package meet

import (
	"errors"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// DefaultTimeZone is sent with start and end times when none is given.
const DefaultTimeZone = "UTC"

const conferenceType = "hangoutsMeet"

// ErrInvalidDuration is returned for a meeting that would not last at all.
var ErrInvalidDuration = errors.New("duration_minutes must be positive")

// Meeting is a calendar event seen as a Google Meet meeting.
type Meeting struct {
	ID          string
	Title       string
	Description string
	StartTime   string
	EndTime     string
	// JoinLink is the video entry point, empty when the conference has none yet.
	JoinLink  string
	Status    string
	HTMLLink  string
	Attendees []*calendar.EventAttendee
}

// FromEvent converts an event returned by the Calendar API.
func FromEvent(ev *calendar.Event) Meeting {
	m := Meeting{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		JoinLink:    JoinLink(ev),
		Status:      ev.Status,
		HTMLLink:    ev.HtmlLink,
		Attendees:   ev.Attendees,
	}
	if ev.Start != nil {
		m.StartTime = ev.Start.DateTime
	}
	if ev.End != nil {
		m.EndTime = ev.End.DateTime
	}
	if m.Attendees == nil {
		m.Attendees = []*calendar.EventAttendee{}
	}
	return m
}

// JoinLink returns the video entry point of the event's conference.
func JoinLink(ev *calendar.Event) string {
	if ev == nil || ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" {
			return ep.Uri
		}
	}
	return ""
}

// Schedule describes a new meeting.
type Schedule struct {
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	TimeZone    string
	Attendees   []string
}

// Changes lists the fields an update sets. Nil pointers and a nil Attendees
// slice leave the field untouched.
type Changes struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	TimeZone    string
	Attendees   []string
}

func (c Changes) apply(ev *calendar.Event) {
	if c.Title != nil {
		ev.Summary = *c.Title
	}
	if c.Description != nil {
		ev.Description = *c.Description
	}
	if c.Start != nil {
		ev.Start = eventTime(*c.Start, c.TimeZone)
	}
	if c.End != nil {
		ev.End = eventTime(*c.End, c.TimeZone)
	}
	if c.Attendees != nil {
		ev.Attendees = attendees(c.Attendees)
	}
}

func eventTime(t time.Time, tz string) *calendar.EventDateTime {
	if tz == "" {
		tz = DefaultTimeZone
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: tz}
}

func attendees(emails []string) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(emails))
	for _, email := range emails {
		out = append(out, &calendar.EventAttendee{Email: email})
	}
	return out
}

// ParseTime reads an ISO 8601 time. A time without an offset is taken in
// tz, or in UTC when tz is empty or unknown.
func ParseTime(s, tz string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want ISO 8601, e.g. 2026-01-05T10:00:00Z", s)
}
