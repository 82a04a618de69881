package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewClient(svc)
}

func TestSend(t *testing.T) {
	var raw string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Raw string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		decoded, err := base64.URLEncoding.DecodeString(body.Raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw = string(decoded)
		_, _ = w.Write([]byte(`{"id":"sent-1"}`))
	})
	c := newTestClient(t, mux)

	id, err := c.Send(context.Background(), Message{
		To:      []string{"a@example.com"},
		Bcc:     []string{"b@example.com"},
		Subject: "Hello",
		Text:    "Body",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)
	assert.Contains(t, raw, "To: a@example.com\r\n")
	assert.Contains(t, raw, "Bcc: b@example.com\r\n")
}

func TestSendValidatesBeforeCalling(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	_, err := c.Send(context.Background(), Message{Subject: "x", Text: "y"})
	assert.EqualError(t, err, "at least one recipient is required")
}

func TestSearchMessages(t *testing.T) {
	var gets []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:buyer", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
		var stubs []string
		for i := 1; i <= 7; i++ {
			stubs = append(stubs, fmt.Sprintf(`{"id":"m%d","threadId":"t%d"}`, i, i))
		}
		fmt.Fprintf(w, `{"messages":[%s],"resultSizeEstimate":7}`, strings.Join(stubs, ","))
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		gets = append(gets, id)
		assert.Equal(t, "metadata", r.URL.Query().Get("format"))
		if id == "m2" {
			http.Error(w, `{"error":{"code":500}}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"snippet":"details"}`, id)
	})
	c := newTestClient(t, mux)

	res, err := c.SearchMessages(context.Background(), "from:buyer", 10)
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.TotalFound)
	assert.Equal(t, "from:buyer", res.Query)
	require.Len(t, res.Messages, searchDetailLimit)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5"}, gets)
	assert.Equal(t, "details", res.Messages[0].Snippet)
	assert.Empty(t, res.Messages[1].Snippet, "failed lookup keeps the stub")
	assert.Equal(t, "t2", res.Messages[1].ThreadId)
}

func TestListMessagesEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"INBOX", "UNREAD"}, r.URL.Query()["labelIds"])
		assert.Equal(t, "true", r.URL.Query().Get("includeSpamTrash"))
		_, _ = w.Write([]byte(`{"resultSizeEstimate":0}`))
	})
	c := newTestClient(t, mux)

	resp, err := c.ListMessages(context.Background(), ListQuery{LabelIDs: []string{"INBOX", "UNREAD"}, IncludeSpamTrash: true})
	require.NoError(t, err)
	assert.NotNil(t, resp.Messages)
	assert.Empty(t, resp.Messages)
}
