package calendar_tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/calendar"
	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/common"
)

// Name is the registry name of the tool.
const Name = "google_calendar"

const poolSize = 2

// Tool exposes Google Calendar operations.
type Tool struct {
	*common.GoogleService[*calendar.Client]

	actions           tools.Actions
	defaultCalendarID string
}

// New creates an unconfigured Google Calendar tool.
func New(deps tools.Deps) *Tool {
	t := &Tool{
		GoogleService: common.NewGoogleService(Name, instrumentation.ServiceCalendar, poolSize, deps,
			func(a *google.Auth) (*calendar.Client, error) {
				svc, err := a.Calendar()
				if err != nil {
					return nil, err
				}
				return calendar.NewClient(svc), nil
			}),
		defaultCalendarID: config.DefaultCalendarID,
	}
	t.actions = tools.Actions{
		"list_calendars":     t.listCalendars,
		"get_calendar":       t.getCalendar,
		"list_events":        t.listEvents,
		"get_event":          t.getEvent,
		"create_event":       t.createEvent,
		"update_event":       t.updateEvent,
		"delete_event":       t.deleteEvent,
		"check_availability": t.checkAvailability,
	}
	return t
}

// Constructor returns a tools.Constructor for the registry.
func Constructor(deps tools.Deps) tools.Constructor {
	return func() tools.Tool { return New(deps) }
}

func (t *Tool) Name() string { return Name }

func (t *Tool) Descriptor() tools.Descriptor {
	stringArray := func(desc string) map[string]any {
		return map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": desc,
		}
	}
	return tools.NewDescriptor(Name,
		"Google Calendar operations for events and scheduling",
		t.actions,
		map[string]any{
			"calendar_id":    tools.Prop("string", "Calendar ID (default: primary)"),
			"event_id":       tools.Prop("string", "Event ID"),
			"summary":        tools.Prop("string", "Event summary/title"),
			"description":    tools.Prop("string", "Event description"),
			"location":       tools.Prop("string", "Event location"),
			"start_time":     tools.Prop("string", "Event start time (ISO format)"),
			"end_time":       tools.Prop("string", "Event end time (ISO format)"),
			"start_date":     tools.Prop("string", "Event start date (YYYY-MM-DD)"),
			"end_date":       tools.Prop("string", "Event end date (YYYY-MM-DD)"),
			"attendees":      stringArray("List of attendee emails"),
			"reminders":      tools.Prop("object", "Event reminders configuration"),
			"recurrence":     stringArray("Recurrence rules (RRULE)"),
			"add_conference": tools.Prop("boolean", "Add Google Meet conference"),
			"send_updates": map[string]any{
				"type":        "string",
				"enum":        []string{"all", "externalOnly", "none"},
				"description": "Send updates to attendees",
			},
			"time_min":      tools.Prop("string", "Minimum time for queries (ISO format)"),
			"time_max":      tools.Prop("string", "Maximum time for queries (ISO format)"),
			"max_results":   tools.Prop("integer", "Maximum results to return"),
			"q":             tools.Prop("string", "Search query"),
			"single_events": tools.Prop("boolean", "Expand recurring events"),
			"order_by":      tools.Prop("string", "Order results by"),
			"page_token":    tools.Prop("string", "Page token for pagination"),
		})
}

// Initialize picks up the calendar service from auth and the default
// calendar from settings.
func (t *Tool) Initialize(ctx context.Context, settings *config.Settings, auth *google.Auth) (bool, error) {
	if settings != nil && settings.GoogleDefaultCalendarID != "" {
		t.defaultCalendarID = settings.GoogleDefaultCalendarID
	}
	return t.GoogleService.Initialize(ctx, auth)
}

func (t *Tool) Execute(ctx context.Context, action string, params map[string]any) tools.Result {
	if !t.IsConfigured() {
		return tools.Failure("Google Calendar not configured", nil)
	}
	return t.actions.Dispatch(ctx, action, params)
}

func (t *Tool) calendarID(params map[string]any) string {
	return tools.StringDefault(params, "calendar_id", t.defaultCalendarID)
}

var _ tools.Tool = (*Tool)(nil)
