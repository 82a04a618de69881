package meet_tools

import (
	"context"
	"time"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/meet"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/common"
)

// Name is the registry name of the tool.
const Name = "google_meet"

const poolSize = 2

// Tool exposes Google Meet meetings.
type Tool struct {
	*common.GoogleService[*meet.Client]

	actions           tools.Actions
	defaultCalendarID string
	now               func() time.Time
}

// New creates an unconfigured Google Meet tool.
func New(deps tools.Deps) *Tool {
	t := &Tool{
		GoogleService: common.NewGoogleService(Name, instrumentation.ServiceCalendar, poolSize, deps,
			func(a *google.Auth) (*meet.Client, error) {
				svc, err := a.Calendar()
				if err != nil {
					return nil, err
				}
				return meet.NewClient(svc), nil
			}),
		defaultCalendarID: config.DefaultCalendarID,
		now:               time.Now,
	}
	t.actions = tools.Actions{
		"create_meeting":         t.createMeeting,
		"create_instant_meeting": t.createInstantMeeting,
		"get_meeting":            t.getMeeting,
		"update_meeting":         t.updateMeeting,
		"end_meeting":            t.endMeeting,
	}
	return t
}

// Constructor returns a tools.Constructor for the registry.
func Constructor(deps tools.Deps) tools.Constructor {
	return func() tools.Tool { return New(deps) }
}

func (t *Tool) Name() string { return Name }

func (t *Tool) Descriptor() tools.Descriptor {
	return tools.NewDescriptor(Name,
		"Google Meet video meeting operations",
		t.actions,
		map[string]any{
			"meeting_id":       tools.Prop("string", "Meeting/Event ID"),
			"calendar_id":      tools.Prop("string", "Calendar ID (default: primary)"),
			"title":            tools.Prop("string", "Meeting title"),
			"description":      tools.Prop("string", "Meeting description"),
			"start_time":       tools.Prop("string", "Meeting start time (ISO 8601)"),
			"end_time":         tools.Prop("string", "Meeting end time (ISO 8601)"),
			"duration_minutes": tools.Prop("integer", "Meeting duration in minutes"),
			"timezone": map[string]any{
				"type":        "string",
				"description": "Timezone",
				"default":     meet.DefaultTimeZone,
			},
			"attendees": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Attendee emails",
			},
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
		return tools.Failure("Google Meet not configured", nil)
	}
	return t.actions.Dispatch(ctx, action, params)
}

func (t *Tool) calendarID(params map[string]any) string {
	return tools.StringDefault(params, "calendar_id", t.defaultCalendarID)
}

var _ tools.Tool = (*Tool)(nil)
