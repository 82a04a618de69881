package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// DefaultBaseURL is the Calendly v2 API.
const DefaultBaseURL = "https://api.calendly.com"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// APIError is a non-success response from the Calendly API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("calendly %s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("calendly %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client is a small Calendly REST client. Requests are signed through an
// oauth2 token source and run on the tool's worker pool.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pool       *workerpool.Pool
	metrics    *instrumentation.Metrics
}

// NewClient returns a client for baseURL that authenticates with ts.
// base is the underlying HTTP client; nil uses http.DefaultClient.
func NewClient(ctx context.Context, baseURL string, ts oauth2.TokenSource, base *http.Client, pool *workerpool.Pool, metrics *instrumentation.Metrics) *Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: oauth2.NewClient(ctx, ts),
		pool:       pool,
		metrics:    metrics,
	}
}

// envelope is the shape of every Calendly response body.
type envelope struct {
	Resource   map[string]any   `json:"resource"`
	Collection []map[string]any `json:"collection"`
	Pagination map[string]any   `json:"pagination"`
}

// do sends one request and decodes the body into out when want matches.
// op is the metric operation label.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, want int, out *envelope) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return tools.CallAPI(ctx, c.pool, c.metrics, instrumentation.ServiceCalendly, op, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != want {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return &APIError{Op: method + " " + path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
		return nil
	})
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	var env envelope
	if err := c.do(ctx, instrumentation.OperationGet, http.MethodGet, path, query, nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) list(ctx context.Context, path string, query url.Values) (*envelope, error) {
	var env envelope
	if err := c.do(ctx, instrumentation.OperationList, http.MethodGet, path, query, nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	if env.Collection == nil {
		env.Collection = []map[string]any{}
	}
	if env.Pagination == nil {
		env.Pagination = map[string]any{}
	}
	return &env, nil
}

func (c *Client) create(ctx context.Context, path string, body any) (*envelope, error) {
	var env envelope
	if err := c.do(ctx, instrumentation.OperationCreate, http.MethodPost, path, nil, body, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, instrumentation.OperationDelete, http.MethodDelete, path, nil, nil, http.StatusNoContent, nil)
}

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (map[string]any, error) {
	env, err := c.get(ctx, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	return env.Resource, nil
}
