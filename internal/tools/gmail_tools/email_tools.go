package gmail_tools

import (
	"context"

	"github.com/teemow/salesmcp/internal/gmail"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/tools"
)

const (
	methodAPI  = "gmail_api"
	methodSMTP = "smtp"
)

func (t *Tool) sendEmail(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "to", "subject", "body"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	msg, err := t.message(params)
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	msg.Text = tools.StringDefault(params, "body", "")
	return t.send(ctx, msg, "email")
}

func (t *Tool) sendHTMLEmail(ctx context.Context, params map[string]any) tools.Result {
	if err := tools.RequireParams(params, "to", "subject"); err != nil {
		return tools.Failure(err.Error(), nil)
	}
	html := tools.StringDefault(params, "html_body", "")
	text := tools.StringDefault(params, "body", "")
	if html == "" && text == "" {
		return tools.Failure("Either html_body or body is required", nil)
	}
	msg, err := t.message(params)
	if err != nil {
		return tools.Failure(err.Error(), nil)
	}
	msg.Text, msg.HTML = text, html
	return t.send(ctx, msg, "HTML email")
}

// message reads the addressing fields shared by both send actions.
func (t *Tool) message(params map[string]any) (gmail.Message, error) {
	var (
		msg gmail.Message
		err error
	)
	if msg.To, err = tools.StringSlice(params, "to"); err != nil {
		return msg, err
	}
	if msg.Cc, err = tools.StringSlice(params, "cc"); err != nil {
		return msg, err
	}
	if msg.Bcc, err = tools.StringSlice(params, "bcc"); err != nil {
		return msg, err
	}
	msg.Subject = tools.StringDefault(params, "subject", "")
	msg.From = tools.StringDefault(params, "from", "")
	return msg, nil
}

// send delivers msg over the API when it is available and over SMTP otherwise.
// kind names the message in failure text ("email", "HTML email").
func (t *Tool) send(ctx context.Context, msg gmail.Message, kind string) tools.Result {
	recipients := msg.Recipients()

	if t.api.IsConfigured() {
		var id string
		err := t.api.Call(ctx, "send", func(ctx context.Context, c *gmail.Client) error {
			var err error
			id, err = c.Send(ctx, msg)
			return err
		})
		if err != nil {
			return tools.FromError("Failed to send "+kind+" via API", err)
		}
		return tools.Success(map[string]any{
			"message_id": id,
			"sent":       true,
			"recipients": recipients,
			"method":     methodAPI,
		}, nil)
	}

	sender, pool := t.smtpTransport()
	if sender == nil {
		return tools.Failure("Gmail not configured", nil)
	}
	err := tools.CallAPI(ctx, pool, t.deps.Metrics, instrumentation.ServiceSMTP, "send", func(ctx context.Context) error {
		return sender.Send(ctx, msg)
	})
	if err != nil {
		return tools.FromError("Failed to send "+kind+" via SMTP", err)
	}
	return tools.Success(map[string]any{
		"sent":       true,
		"recipients": recipients,
		"method":     methodSMTP,
	}, nil)
}
