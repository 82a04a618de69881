package calendly

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/tools"
)

const defaultCount = 20

// addOptional copies the listed string params into query when present.
func addOptional(query url.Values, params map[string]any, keys ...string) {
	for _, k := range keys {
		if v, ok := params[k]; ok && v != nil {
			query.Set(k, fmt.Sprint(v))
		}
	}
}

func (t *Tool) getUser(ctx context.Context, _ map[string]any) tools.Result {
	client, _ := t.api()
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return tools.FromError("Failed to get user", err)
	}
	return tools.Success(user, nil)
}

func (t *Tool) listEventTypes(ctx context.Context, params map[string]any) tools.Result {
	client, userURI := t.api()
	query := url.Values{"user": {tools.StringDefault(params, "user", userURI)}}

	env, err := client.list(ctx, "/event_types", query)
	if err != nil {
		return tools.FromError("Failed to list event types", err)
	}
	return tools.Success(map[string]any{
		"event_types": env.Collection,
		"total":       len(env.Collection),
	}, nil)
}

func (t *Tool) getEventType(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_type_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	env, err := client.get(ctx, "/event_types/"+pathID(params, "event_type_uuid"), nil)
	if err != nil {
		return tools.FromError("Failed to get event type", err)
	}
	return tools.Success(env.Resource, nil)
}

func (t *Tool) listScheduledEvents(ctx context.Context, params map[string]any) tools.Result {
	client, userURI := t.api()
	query := url.Values{
		"user":  {tools.StringDefault(params, "user", userURI)},
		"count": {strconv.Itoa(tools.Int(params, "count", defaultCount))},
	}
	addOptional(query, params, "status", "min_start_time", "max_start_time", "page_token", "sort")

	env, err := client.list(ctx, "/scheduled_events", query)
	if err != nil {
		return tools.FromError("Failed to list events", err)
	}
	return tools.Success(map[string]any{
		"events":     env.Collection,
		"pagination": env.Pagination,
	}, nil)
}

func (t *Tool) getScheduledEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	env, err := client.get(ctx, "/scheduled_events/"+pathID(params, "event_uuid"), nil)
	if err != nil {
		return tools.FromError("Failed to get event", err)
	}
	return tools.Success(env.Resource, nil)
}

func (t *Tool) cancelScheduledEvent(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	body := map[string]any{"reason": tools.StringDefault(params, "reason", "Canceled by API")}

	env, err := client.create(ctx, "/scheduled_events/"+pathID(params, "event_uuid")+"/cancellation", body)
	if err != nil {
		return tools.FromError("Failed to cancel event", err)
	}
	return tools.Success(map[string]any{
		"canceled":     true,
		"cancellation": env.Resource,
	}, nil)
}

func (t *Tool) listInvitees(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	query := url.Values{"count": {strconv.Itoa(tools.Int(params, "count", defaultCount))}}
	addOptional(query, params, "email", "status", "page_token", "sort")

	env, err := client.list(ctx, "/scheduled_events/"+pathID(params, "event_uuid")+"/invitees", query)
	if err != nil {
		return tools.FromError("Failed to list invitees", err)
	}
	return tools.Success(map[string]any{
		"invitees":   env.Collection,
		"pagination": env.Pagination,
	}, nil)
}

func (t *Tool) getInvitee(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "event_uuid", "invitee_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	invitee := pathID(params, "invitee_uuid")
	env, err := client.get(ctx, "/scheduled_events/"+pathID(params, "event_uuid")+"/invitees/"+invitee, nil)
	if err != nil {
		t.logger.Debug("get invitee failed", logging.Err(err))
		return tools.Failuref("Invitee not found: %s", invitee)
	}
	return tools.Success(env.Resource, nil)
}

func (t *Tool) createWebhook(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "url", "events"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	events, err := tools.StringSlice(params, "events")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}

	body := map[string]any{
		"url":    params["url"],
		"events": events,
		"scope":  tools.StringDefault(params, "scope", "user"),
	}
	for _, k := range []string{"organization", "user"} {
		if v, ok := tools.String(params, k); ok {
			body[k] = v
		}
	}

	client, _ := t.api()
	env, err := client.create(ctx, "/webhook_subscriptions", body)
	if err != nil {
		return tools.FromError("Failed to create webhook", err)
	}

	uri, _ := env.Resource["uri"].(string)
	return tools.Success(map[string]any{
		"webhook_uuid": uri[strings.LastIndex(uri, "/")+1:],
		"webhook":      env.Resource,
		"created":      true,
	}, nil)
}

func (t *Tool) listWebhooks(ctx context.Context, params map[string]any) tools.Result {
	client, userURI := t.api()
	query := url.Values{"scope": {tools.StringDefault(params, "scope", "user")}}
	if org, ok := tools.String(params, "organization"); ok {
		query.Set("organization", org)
	}
	if user := tools.StringDefault(params, "user", userURI); user != "" {
		query.Set("user", user)
	}

	env, err := client.list(ctx, "/webhook_subscriptions", query)
	if err != nil {
		return tools.FromError("Failed to list webhooks", err)
	}
	return tools.Success(map[string]any{
		"webhooks": env.Collection,
		"total":    len(env.Collection),
	}, nil)
}

func (t *Tool) deleteWebhook(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "webhook_uuid"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	client, _ := t.api()
	id := pathID(params, "webhook_uuid")
	if err := client.delete(ctx, "/webhook_subscriptions/"+id); err != nil {
		return tools.FromError("Failed to delete webhook", err)
	}
	return tools.Success(map[string]any{
		"deleted":      true,
		"webhook_uuid": id,
	}, nil)
}

// pathID returns params[key] escaped for use as a path segment.
func pathID(params map[string]any, key string) string {
	return url.PathEscape(fmt.Sprint(params[key]))
}
