package calendar

import (
	"context"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"
)

// Client wraps a Google Calendar service.
type Client struct {
	svc *calendar.Service
}

// NewClient wraps svc.
func NewClient(svc *calendar.Service) *Client {
	return &Client{svc: svc}
}

// ListCalendars returns the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	list, err := c.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if list.Items == nil {
		return []*calendar.CalendarListEntry{}, nil
	}
	return list.Items, nil
}

// GetCalendar returns the metadata of calendarID.
func (c *Client) GetCalendar(ctx context.Context, calendarID string) (*calendar.Calendar, error) {
	return c.svc.Calendars.Get(calendarID).Context(ctx).Do()
}

// ListEvents lists one page of events in calendarID.
func (c *Client) ListEvents(ctx context.Context, calendarID string, q EventQuery) (*calendar.Events, error) {
	call := c.svc.Events.List(calendarID).Context(ctx)
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	if q.TimeMin != "" {
		call = call.TimeMin(q.TimeMin)
	}
	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.SingleEvents != nil {
		call = call.SingleEvents(*q.SingleEvents)
	}
	if q.OrderBy != "" {
		call = call.OrderBy(q.OrderBy)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	events, err := call.Do()
	if err != nil {
		return nil, err
	}
	if events.Items == nil {
		events.Items = []*calendar.Event{}
	}
	return events, nil
}

// GetEvent returns a single event.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	return c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
}

// CreateEvent inserts a new event built from in. in must carry a start/end
// pair. sendUpdates defaults to SendUpdatesNone.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, in EventInput, sendUpdates string) (*calendar.Event, error) {
	if !in.HasTimes() {
		return nil, ErrMissingTimes
	}

	ev := &calendar.Event{}
	in.apply(ev)

	call := c.svc.Events.Insert(calendarID, ev).
		Context(ctx).
		SendUpdates(orNone(sendUpdates))
	if in.AddConference {
		ev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		call = call.ConferenceDataVersion(1)
	}
	return call.Do()
}

// UpdateEvent reads the event, applies in and writes it back.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, in EventInput, sendUpdates string) (*calendar.Event, error) {
	ev, err := c.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	in.apply(ev)

	return c.svc.Events.Update(calendarID, eventID, ev).
		Context(ctx).
		SendUpdates(orNone(sendUpdates)).
		Do()
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID, sendUpdates string) error {
	return c.svc.Events.Delete(calendarID, eventID).
		Context(ctx).
		SendUpdates(orNone(sendUpdates)).
		Do()
}

// CheckAvailability reports whether calendarID has no events between
// timeMin and timeMax. Recurring events are expanded.
func (c *Client) CheckAvailability(ctx context.Context, calendarID, timeMin, timeMax string) (Availability, error) {
	single := true
	events, err := c.ListEvents(ctx, calendarID, EventQuery{
		TimeMin:      timeMin,
		TimeMax:      timeMax,
		SingleEvents: &single,
		OrderBy:      "startTime",
	})
	if err != nil {
		return Availability{}, err
	}

	return Availability{
		Available: len(events.Items) == 0,
		Events:    events.Items,
		Count:     len(events.Items),
	}, nil
}

func orNone(sendUpdates string) string {
	if sendUpdates == "" {
		return SendUpdatesNone
	}
	return sendUpdates
}
