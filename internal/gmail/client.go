package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	me = "me"

	// searchDetailLimit bounds the metadata lookups SearchMessages makes.
	searchDetailLimit = 5
)

// Client wraps a Gmail service for the authenticated user.
type Client struct {
	svc *gmail.Service
}

// NewClient wraps svc.
func NewClient(svc *gmail.Service) *Client {
	return &Client{svc: svc}
}

// Profile returns the mailbox profile.
func (c *Client) Profile(ctx context.Context) (*gmail.Profile, error) {
	return c.svc.Users.GetProfile(me).Context(ctx).Do()
}

// ListQuery filters ListMessages. Zero values are not sent.
type ListQuery struct {
	Query            string
	MaxResults       int64
	LabelIDs         []string
	IncludeSpamTrash bool
	PageToken        string
}

// ListMessages returns one page of message stubs (id and thread id).
func (c *Client) ListMessages(ctx context.Context, q ListQuery) (*gmail.ListMessagesResponse, error) {
	call := c.svc.Users.Messages.List(me).
		Context(ctx).
		IncludeSpamTrash(q.IncludeSpamTrash)
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	if len(q.LabelIDs) > 0 {
		call = call.LabelIds(q.LabelIDs...)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		resp.Messages = []*gmail.Message{}
	}
	return resp, nil
}

// GetMessage returns a message in format full, metadata, minimal or raw.
func (c *Client) GetMessage(ctx context.Context, id, format string) (*gmail.Message, error) {
	call := c.svc.Users.Messages.Get(me, id).Context(ctx)
	if format != "" {
		call = call.Format(format)
	}
	return call.Do()
}

// SearchResult is the outcome of SearchMessages.
type SearchResult struct {
	Messages   []*gmail.Message `json:"messages"`
	TotalFound int64            `json:"total_found"`
	Query      string           `json:"query"`
}

// SearchMessages runs query and returns the matches. The first few matches
// are expanded to their metadata; a match whose lookup fails stays a stub.
func (c *Client) SearchMessages(ctx context.Context, query string, maxResults int64) (SearchResult, error) {
	resp, err := c.ListMessages(ctx, ListQuery{Query: query, MaxResults: maxResults})
	if err != nil {
		return SearchResult{}, err
	}

	n := min(len(resp.Messages), searchDetailLimit)
	detailed := make([]*gmail.Message, 0, n)
	for _, stub := range resp.Messages[:n] {
		msg, err := c.GetMessage(ctx, stub.Id, "metadata")
		if err != nil {
			if ctx.Err() != nil {
				return SearchResult{}, ctx.Err()
			}
			msg = stub
		}
		detailed = append(detailed, msg)
	}

	return SearchResult{
		Messages:   detailed,
		TotalFound: resp.ResultSizeEstimate,
		Query:      query,
	}, nil
}

// Send delivers m and returns the sent message id.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	raw, err := m.Build(true)
	if err != nil {
		return "", err
	}

	sent, err := c.svc.Users.Messages.Send(me, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	return sent.Id, nil
}
