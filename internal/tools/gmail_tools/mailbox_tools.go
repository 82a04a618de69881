package gmail_tools

import (
	"context"
	"strconv"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/salesmcp/internal/gmail"
	"github.com/teemow/salesmcp/internal/tools"
)

const (
	defaultMaxResults = 10
	defaultFormat     = "full"
)

// smtpOnly is the failure of every mailbox read when only SMTP is set up.
const smtpOnly = "Gmail API not available, only SMTP is configured"

func (t *Tool) getProfile(ctx context.Context, _ map[string]any) tools.Result {
	if !t.api.IsConfigured() {
		return tools.Failure(smtpOnly, nil)
	}

	var profile *gmailapi.Profile
	err := t.api.Call(ctx, "get", func(ctx context.Context, c *gmail.Client) error {
		var err error
		profile, err = c.Profile(ctx)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get profile", err)
	}
	return tools.Success(map[string]any{
		"email_address":  profile.EmailAddress,
		"messages_total": profile.MessagesTotal,
		"threads_total":  profile.ThreadsTotal,
		"history_id":     strconv.FormatUint(profile.HistoryId, 10),
	}, nil)
}

func (t *Tool) listMessages(ctx context.Context, params map[string]any) tools.Result {
	if !t.api.IsConfigured() {
		return tools.Failure(smtpOnly, nil)
	}
	labels, err := tools.StringSlice(params, "label_ids")
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	q := gmail.ListQuery{
		Query:            tools.StringDefault(params, "query", ""),
		MaxResults:       int64(tools.Int(params, "max_results", defaultMaxResults)),
		LabelIDs:         labels,
		IncludeSpamTrash: tools.Bool(params, "include_spam_trash", false),
		PageToken:        tools.StringDefault(params, "page_token", ""),
	}

	var resp *gmailapi.ListMessagesResponse
	err = t.api.Call(ctx, "list", func(ctx context.Context, c *gmail.Client) error {
		var err error
		resp, err = c.ListMessages(ctx, q)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to list messages", err)
	}

	var next any
	if resp.NextPageToken != "" {
		next = resp.NextPageToken
	}
	return tools.Success(map[string]any{
		"messages":             resp.Messages,
		"result_size_estimate": resp.ResultSizeEstimate,
		"next_page_token":      next,
	}, nil)
}

func (t *Tool) getMessage(ctx context.Context, params map[string]any) tools.Result {
	if !t.api.IsConfigured() {
		return tools.Failure(smtpOnly, nil)
	}
	if err := tools.RequireParams(params, "message_id"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	id, _ := tools.String(params, "message_id")
	format := tools.StringDefault(params, "format", defaultFormat)

	var msg *gmailapi.Message
	err := t.api.Call(ctx, "get", func(ctx context.Context, c *gmail.Client) error {
		var err error
		msg, err = c.GetMessage(ctx, id, format)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to get message", err)
	}
	return tools.Success(msg, nil)
}

func (t *Tool) searchMessages(ctx context.Context, params map[string]any) tools.Result {
	if !t.api.IsConfigured() {
		return tools.Failure(smtpOnly, nil)
	}
	if err := tools.RequireParams(params, "query"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	query := tools.StringDefault(params, "query", "")
	maxResults := int64(tools.Int(params, "max_results", defaultMaxResults))

	var res gmail.SearchResult
	err := t.api.Call(ctx, "search", func(ctx context.Context, c *gmail.Client) error {
		var err error
		res, err = c.SearchMessages(ctx, query, maxResults)
		return err
	})
	if err != nil {
		return tools.FromError("Failed to search messages", err)
	}
	return tools.Success(res, nil)
}
