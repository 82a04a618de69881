package calendar_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/teemow/salesmcp/internal/calendar"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) listEvents(ctx context.Context, params map[string]any) tools.Result {
	calendarID := t.calendarID(params)
	q := calendar.EventQuery{
		MaxResults: int64(tools.Int(params, "max_results", 0)),
		TimeMin:    tools.StringDefault(params, "time_min", ""),
		TimeMax:    tools.StringDefault(params, "time_max", ""),
		Query:      tools.StringDefault(params, "q", ""),
		OrderBy:    tools.StringDefault(params, "order_by", ""),
		PageToken:  tools.StringDefault(params, "page_token", ""),
	}
	if _, ok := params["single_events"]; ok {
		single := tools.Bool(params, "single_events", false)
		q.SingleEvents = &single
	}

	var events *calendarapi.Events
	err := t.Call(ctx, "list", func(ctx context.Context, c *calendar.Client) error {
		var err error
		events, err = c.ListEvents(ctx, calendarID, q)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list events", err)
	}

	var next any
	if events.NextPageToken != "" {
		next = events.NextPageToken
	}
	return tools.Success(map[string]any{
		"events":          events.Items,
		"next_page_token": next,
		"total":           len(events.Items),
	}, nil)
}

func (t *Tool) getEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	eventID, _ := tools.String(params, "event_id")
	calendarID := t.calendarID(params)

	var ev *calendarapi.Event
	err := t.Call(ctx, "get", func(ctx context.Context, c *calendar.Client) error {
		var err error
		ev, err = c.GetEvent(ctx, calendarID, eventID)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get event", err)
	}
	return tools.Success(ev, nil)
}

func (t *Tool) createEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "summary"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	in, err := eventInput(params)
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	if !in.HasTimes() {
		return tools.Failure(calendar.ErrMissingTimes.Error(), nil)
	}
	if in.Description == nil {
		in.Description = new(string)
	}
	if in.Location == nil {
		in.Location = new(string)
	}
	calendarID := t.calendarID(params)
	sendUpdates := tools.StringDefault(params, "send_updates", calendar.SendUpdatesNone)

	var ev *calendarapi.Event
	err = t.Call(ctx, "create", func(ctx context.Context, c *calendar.Client) error {
		var err error
		ev, err = c.CreateEvent(ctx, calendarID, in, sendUpdates)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to create event", err)
	}
	return tools.Success(map[string]any{
		"event":     ev,
		"created":   true,
		"event_id":  ev.Id,
		"html_link": ev.HtmlLink,
	}, nil)
}

func (t *Tool) updateEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	in, err := eventInput(params)
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	eventID, _ := tools.String(params, "event_id")
	calendarID := t.calendarID(params)
	sendUpdates := tools.StringDefault(params, "send_updates", calendar.SendUpdatesNone)

	var ev *calendarapi.Event
	err = t.Call(ctx, "update", func(ctx context.Context, c *calendar.Client) error {
		var err error
		ev, err = c.UpdateEvent(ctx, calendarID, eventID, in, sendUpdates)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to update event", err)
	}
	return tools.Success(map[string]any{
		"event":    ev,
		"updated":  true,
		"event_id": ev.Id,
	}, nil)
}

func (t *Tool) deleteEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	eventID, _ := tools.String(params, "event_id")
	calendarID := t.calendarID(params)
	sendUpdates := tools.StringDefault(params, "send_updates", calendar.SendUpdatesNone)

	err := t.Call(ctx, "delete", func(ctx context.Context, c *calendar.Client) error {
		return c.DeleteEvent(ctx, calendarID, eventID, sendUpdates)
	})
	if err != nil {
		return tools.FromError("Failed to delete event", err)
	}
	return tools.Success(map[string]any{
		"deleted":  true,
		"event_id": eventID,
	}, nil)
}

// eventInput reads the event fields present in params. Text fields are set
// only when the key is present so an update can clear them with "".
func eventInput(params map[string]any) (calendar.EventInput, error) {
	in := calendar.EventInput{
		StartTime:     tools.StringDefault(params, "start_time", ""),
		EndTime:       tools.StringDefault(params, "end_time", ""),
		StartDate:     tools.StringDefault(params, "start_date", ""),
		EndDate:       tools.StringDefault(params, "end_date", ""),
		AddConference: tools.Bool(params, "add_conference", false),
	}

	for key, dst := range map[string]**string{
		"summary":     &in.Summary,
		"description": &in.Description,
		"location":    &in.Location,
	} {
		if v, ok := params[key].(string); ok {
			*dst = &v
		}
	}

	if _, ok := params["attendees"]; ok {
		attendees, err := tools.StringSlice(params, "attendees")
		if err != nil {
			return in, err
		}
		in.Attendees = append([]string{}, attendees...)
	}

	if rules, ok := params["recurrence"]; ok {
		recurrence, err := recurrenceRules(rules)
		if err != nil {
			return in, err
		}
		in.Recurrence = recurrence
	}

	if m, ok := tools.Map(params, "reminders"); ok {
		reminders, err := decodeReminders(m)
		if err != nil {
			return in, err
		}
		in.Reminders = reminders
	}
	return in, nil
}

// recurrenceRules accepts one rule or a list of rules. A single string is
// never split on commas since RRULE values contain them.
func recurrenceRules(v any) ([]string, error) {
	switch rules := v.(type) {
	case string:
		return []string{rules}, nil
	case []string:
		return rules, nil
	case []any:
		out := make([]string, 0, len(rules))
		for _, r := range rules {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("invalid recurrence rule: %v", r)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("recurrence must be a string or a list of strings")
	}
}

func decodeReminders(m map[string]any) (*calendarapi.EventReminders, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("invalid reminders: %w", err)
	}
	var reminders calendarapi.EventReminders
	if err := json.Unmarshal(raw, &reminders); err != nil {
		return nil, fmt.Errorf("invalid reminders: %w", err)
	}
	if m["useDefault"] != nil {
		// useDefault=false must be sent explicitly to override the calendar default.
		reminders.ForceSendFields = append(reminders.ForceSendFields, "UseDefault")
	}
	return &reminders, nil
}
