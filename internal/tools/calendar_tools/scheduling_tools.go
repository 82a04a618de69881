package calendar_tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/calendar"
	"github.com/teemow/salesmcp/internal/tools"
)

func (t *Tool) checkAvailability(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "time_min", "time_max"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	timeMin, _ := tools.String(params, "time_min")
	timeMax, _ := tools.String(params, "time_max")
	calendarID := t.calendarID(params)

	var avail calendar.Availability
	err := t.Call(ctx, "list", func(ctx context.Context, c *calendar.Client) error {
		var err error
		avail, err = c.CheckAvailability(ctx, calendarID, timeMin, timeMax)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to check availability", err)
	}
	return tools.Success(avail, nil)
}
