package gmail

import (
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{"no recipients", Message{Text: "hi"}, "at least one recipient is required"},
		{"no body", Message{To: []string{"a@example.com"}}, "body is required"},
		{"text only", Message{To: []string{"a@example.com"}, Text: "hi"}, ""},
		{"html only", Message{To: []string{"a@example.com"}, HTML: "<p>hi</p>"}, ""},
		{"display name", Message{From: `"Sales Team" <me@example.com>`, To: []string{"Ann <a@example.com>"}, Text: "hi"}, ""},
		{
			"subject with header injection",
			Message{To: []string{"a@example.com"}, Subject: "Hi\r\nBcc: spy@example.com", Text: "hi"},
			"subject must not contain line breaks",
		},
		{
			"recipient with header injection",
			Message{To: []string{"a@example.com\r\nBcc: spy@example.com"}, Text: "hi"},
			`invalid To address "a@example.com\r\nBcc: spy@example.com": contains a line break`,
		},
		{
			"from with line feed",
			Message{From: "me@example.com\nX-Injected: 1", To: []string{"a@example.com"}, Text: "hi"},
			`invalid From address "me@example.com\nX-Injected: 1": contains a line break`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.Build(false)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestBuildPlain(t *testing.T) {
	m := Message{
		From:    "me@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Cc:      []string{"c@example.com"},
		Bcc:     []string{"hidden@example.com"},
		Subject: "Grüße aus Köln",
		Text:    "Hallo Welt, schöne Grüße",
	}

	for _, withBcc := range []bool{true, false} {
		raw, err := m.Build(withBcc)
		require.NoError(t, err)

		parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
		require.NoError(t, err)

		assert.Equal(t, "a@example.com, b@example.com", parsed.Header.Get("To"))
		assert.Equal(t, "c@example.com", parsed.Header.Get("Cc"))
		if withBcc {
			assert.Equal(t, "hidden@example.com", parsed.Header.Get("Bcc"))
		} else {
			assert.Empty(t, parsed.Header.Get("Bcc"))
		}

		subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
		require.NoError(t, err)
		assert.Equal(t, "Grüße aus Köln", subject)
		assert.True(t, strings.HasPrefix(parsed.Header.Get("Subject"), "=?UTF-8?b?"))

		mediaType, _, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "text/plain", mediaType)
		assert.Equal(t, "quoted-printable", parsed.Header.Get("Content-Transfer-Encoding"))
	}

	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com", "hidden@example.com"}, m.Recipients())
}

func TestBuildRejectsMalformedAddresses(t *testing.T) {
	for _, m := range []Message{
		{To: []string{"not an address"}, Text: "x"},
		{To: []string{"a@example.com"}, Cc: []string{"a@example.com, b@example.com"}, Text: "x"},
		{To: []string{"a@example.com"}, Bcc: []string{"<broken"}, Text: "x"},
	} {
		raw, err := m.Build(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid")
		assert.Nil(t, raw)
	}
}

func TestBuildInjectedSubjectAddsNoHeader(t *testing.T) {
	raw, err := Message{To: []string{"a@example.com"}, Subject: "Hi\r\nBcc: spy@example.com", Text: "x"}.Build(true)
	require.Error(t, err)
	assert.NotContains(t, string(raw), "Bcc:")
}

func TestBuildASCIISubjectUnencoded(t *testing.T) {
	raw, err := Message{To: []string{"a@example.com"}, Subject: "Quarterly review", Text: "x"}.Build(false)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Quarterly review\r\n")
}

func TestBuildAlternative(t *testing.T) {
	m := Message{
		To:      []string{"a@example.com"},
		Subject: "Offer",
		Text:    "plain version",
		HTML:    "<p>html version</p>",
	}
	raw, err := m.Build(false)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	mediaType, mparams, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	// NextPart decodes quoted-printable bodies.
	mr := multipart.NewReader(parsed.Body, mparams["boundary"])
	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		ct, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		types = append(types, ct)
		bodies = append(bodies, string(body))
	}
	assert.Equal(t, []string{"text/plain", "text/html"}, types)
	assert.Equal(t, []string{"plain version", "<p>html version</p>"}, bodies)
}

func TestBuildHTMLOnlySkipsTextPart(t *testing.T) {
	raw, err := Message{To: []string{"a@example.com"}, HTML: "<b>x</b>"}.Build(false)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "text/plain")
	assert.Contains(t, string(raw), "text/html")
}
