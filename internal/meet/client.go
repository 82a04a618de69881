package meet

import (
	"context"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"
)

// Client creates and manages meetings on a calendar.
type Client struct {
	svc *calendar.Service
}

// NewClient wraps a Calendar service.
func NewClient(svc *calendar.Service) *Client {
	return &Client{svc: svc}
}

// Create inserts an event with a new Meet conference and returns it with the
// join link Google assigned.
func (c *Client) Create(ctx context.Context, calendarID string, s Schedule) (Meeting, error) {
	if s.Duration <= 0 {
		return Meeting{}, ErrInvalidDuration
	}

	ev := &calendar.Event{
		Summary:     s.Title,
		Description: s.Description,
		Start:       eventTime(s.Start, s.TimeZone),
		End:         eventTime(s.Start.Add(s.Duration), s.TimeZone),
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: conferenceType},
			},
		},
	}
	if len(s.Attendees) > 0 {
		ev.Attendees = attendees(s.Attendees)
	}

	created, err := c.svc.Events.Insert(calendarID, ev).
		Context(ctx).
		ConferenceDataVersion(1).
		Do()
	if err != nil {
		return Meeting{}, err
	}
	return FromEvent(created), nil
}

// Get returns the meeting stored as event id.
func (c *Client) Get(ctx context.Context, calendarID, id string) (Meeting, error) {
	ev, err := c.svc.Events.Get(calendarID, id).Context(ctx).Do()
	if err != nil {
		return Meeting{}, err
	}
	return FromEvent(ev), nil
}

// Update reads the event, applies ch and writes it back. The conference
// stays attached.
func (c *Client) Update(ctx context.Context, calendarID, id string, ch Changes) (Meeting, error) {
	ev, err := c.svc.Events.Get(calendarID, id).Context(ctx).Do()
	if err != nil {
		return Meeting{}, err
	}
	ch.apply(ev)

	updated, err := c.svc.Events.Update(calendarID, id, ev).
		Context(ctx).
		ConferenceDataVersion(1).
		Do()
	if err != nil {
		return Meeting{}, err
	}
	return FromEvent(updated), nil
}

// End moves the end of the meeting to at.
func (c *Client) End(ctx context.Context, calendarID, id string, at time.Time) (Meeting, error) {
	return c.Update(ctx, calendarID, id, Changes{End: &at, TimeZone: DefaultTimeZone})
}
