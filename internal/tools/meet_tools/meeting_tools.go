package meet_tools

import (
	"context"
	"time"

	"github.com/teemow/salesmcp/internal/meet"
	"github.com/teemow/salesmcp/internal/tools"
)

const (
	instantTitle       = "Instant Meeting"
	instantDescription = "Instant Google Meet"
	instantDuration    = 60
)

func (t *Tool) createMeeting(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "title", "start_time", "duration_minutes"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	tz := tools.StringDefault(params, "timezone", meet.DefaultTimeZone)
	raw, _ := tools.String(params, "start_time")
	start, err := meet.ParseTime(raw, tz)
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	attendees, err := optionalStrings(params, "attendees")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}

	title, _ := tools.String(params, "title")
	s := meet.Schedule{
		Title:       title,
		Description: tools.StringDefault(params, "description", ""),
		Start:       start,
		Duration:    time.Duration(tools.Int(params, "duration_minutes", 0)) * time.Minute,
		TimeZone:    tz,
		Attendees:   attendees,
	}

	m, err := t.create(ctx, t.calendarID(params), s)
	if err != nil {
		return tools.FromError("Failed to create Google Meet meeting", err)
	}
	return tools.Success(map[string]any{
		"meeting_id":       m.ID,
		"event_id":         m.ID,
		"title":            m.Title,
		"start_time":       m.StartTime,
		"end_time":         m.EndTime,
		"google_meet_link": joinLink(m),
		"html_link":        m.HTMLLink,
		"created":          true,
	}, nil)
}

func (t *Tool) createInstantMeeting(ctx context.Context, params map[string]any) tools.Result {
	s := meet.Schedule{
		Title:       tools.StringDefault(params, "title", instantTitle),
		Description: tools.StringDefault(params, "description", instantDescription),
		Start:       t.now().UTC(),
		Duration:    time.Duration(tools.Int(params, "duration_minutes", instantDuration)) * time.Minute,
		TimeZone:    meet.DefaultTimeZone,
	}

	m, err := t.create(ctx, t.calendarID(params), s)
	if err != nil {
		return tools.FromError("Failed to create instant meeting", err)
	}
	return tools.Success(map[string]any{
		"meeting_id":       m.ID,
		"title":            m.Title,
		"google_meet_link": joinLink(m),
		"start_time":       m.StartTime,
		"end_time":         m.EndTime,
		"instant":          true,
		"created":          true,
	}, nil)
}

func (t *Tool) create(ctx context.Context, calendarID string, s meet.Schedule) (meet.Meeting, error) {
	var m meet.Meeting
	err := t.Call(ctx, "create", func(ctx context.Context, c *meet.Client) error {
		var err error
		m, err = c.Create(ctx, calendarID, s)
		return err
	})
	return m, err
}

func (t *Tool) getMeeting(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "meeting_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	id, _ := tools.String(params, "meeting_id")
	calendarID := t.calendarID(params)

	var m meet.Meeting
	err := t.Call(ctx, "get", func(ctx context.Context, c *meet.Client) error {
		var err error
		m, err = c.Get(ctx, calendarID, id)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get meeting", err)
	}
	return tools.Success(map[string]any{
		"meeting_id":       m.ID,
		"title":            m.Title,
		"description":      m.Description,
		"start_time":       m.StartTime,
		"end_time":         m.EndTime,
		"google_meet_link": joinLink(m),
		"status":           m.Status,
		"attendees":        m.Attendees,
		"html_link":        m.HTMLLink,
	}, nil)
}

func (t *Tool) updateMeeting(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "meeting_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	id, _ := tools.String(params, "meeting_id")
	calendarID := t.calendarID(params)

	ch := meet.Changes{TimeZone: tools.StringDefault(params, "timezone", meet.DefaultTimeZone)}
	if v, ok := params["title"].(string); ok {
		ch.Title = &v
	}
	if v, ok := params["description"].(string); ok {
		ch.Description = &v
	}
	for key, dst := range map[string]**time.Time{"start_time": &ch.Start, "end_time": &ch.End} {
		raw, ok := tools.String(params, key)
		if !ok {
			continue
		}
		at, err := meet.ParseTime(raw, ch.TimeZone)
		if err != nil {
			return tools.Failure(err.Error(), nil)
		}
		*dst = &at
	}
	attendees, err := optionalStrings(params, "attendees")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	ch.Attendees = attendees

	var m meet.Meeting
	err = t.Call(ctx, "update", func(ctx context.Context, c *meet.Client) error {
		var err error
		m, err = c.Update(ctx, calendarID, id, ch)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to update meeting", err)
	}
	return tools.Success(map[string]any{
		"meeting_id": m.ID,
		"updated":    true,
		"title":      m.Title,
		"start_time": m.StartTime,
		"end_time":   m.EndTime,
	}, nil)
}

func (t *Tool) endMeeting(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "meeting_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	id, _ := tools.String(params, "meeting_id")
	calendarID := t.calendarID(params)
	at := t.now().UTC()

	var m meet.Meeting
	err := t.Call(ctx, "update", func(ctx context.Context, c *meet.Client) error {
		var err error
		m, err = c.End(ctx, calendarID, id, at)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to end meeting", err)
	}
	return tools.Success(map[string]any{
		"meeting_id": m.ID,
		"ended":      true,
		"end_time":   m.EndTime,
	}, nil)
}

// joinLink is nil rather than empty when the conference has no video entry.
func joinLink(m meet.Meeting) any {
	if m.JoinLink == "" {
		return nil
	}
	return m.JoinLink
}

// optionalStrings returns nil when key is absent, so updates leave the
// field alone.
func optionalStrings(params map[string]any, key string) ([]string, error) {
	if _, ok := params[key]; !ok {
		return nil, nil
	}
	v, err := tools.StringSlice(params, key)
	if err != nil {
		return nil, err
	}
	return append([]string{}, v...), nil
}
