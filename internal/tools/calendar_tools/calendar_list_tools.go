package calendar_tools

import (
	"context"

	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/teemow/salesmcp/internal/calendar"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) listCalendars(ctx context.Context, _ map[string]any) tools.Result {
	var calendars []*calendarapi.CalendarListEntry
	err := t.Call(ctx, "list", func(ctx context.Context, c *calendar.Client) error {
		var err error
		calendars, err = c.ListCalendars(ctx)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list calendars", err)
	}
	return tools.Success(map[string]any{
		"calendars": calendars,
		"total":     len(calendars),
	}, nil)
}

func (t *Tool) getCalendar(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "calendar_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	id, _ := tools.String(params, "calendar_id")

	var cal *calendarapi.Calendar
	err := t.Call(ctx, "get", func(ctx context.Context, c *calendar.Client) error {
		var err error
		cal, err = c.GetCalendar(ctx, id)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get calendar", err)
	}
	return tools.Success(cal, nil)
}
