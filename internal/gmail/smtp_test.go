package gmail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/salesmcp/internal/gmail/smtptest"
)

func TestSMTPSenderSend(t *testing.T) {
	srv := smtptest.NewServer(t, "me@example.com", "app-password")
	s := &SMTPSender{Addr: srv.Addr, Email: "me@example.com", Password: "app-password"}

	err := s.Send(context.Background(), Message{
		To:      []string{"a@example.com"},
		Cc:      []string{"c@example.com"},
		Bcc:     []string{"hidden@example.com"},
		Subject: "Proposal",
		Text:    "See attached.\n.leading dot line",
	})
	require.NoError(t, err)

	mails := srv.Mails()
	require.Len(t, mails, 1)
	got := mails[0]
	assert.Equal(t, "me@example.com", got.From)
	assert.Equal(t, []string{"a@example.com", "c@example.com", "hidden@example.com"}, got.To)
	assert.Contains(t, got.Data, "From: me@example.com\r\n")
	assert.NotContains(t, got.Data, "hidden@example.com")
	assert.True(t, strings.Contains(got.Data, ".leading dot line"))
}

func TestSMTPSenderVerify(t *testing.T) {
	srv := smtptest.NewServer(t, "me@example.com", "app-password")

	good := &SMTPSender{Addr: srv.Addr, Email: "me@example.com", Password: "app-password"}
	require.NoError(t, good.Verify(context.Background()))
	assert.Empty(t, srv.Mails())

	bad := &SMTPSender{Addr: srv.Addr, Email: "me@example.com", Password: "wrong"}
	err := bad.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp auth")
}

func TestSMTPSenderRequiresCredentials(t *testing.T) {
	err := NewSMTPSender("", "").Verify(context.Background())
	assert.EqualError(t, err, "smtp credentials not configured")
}
