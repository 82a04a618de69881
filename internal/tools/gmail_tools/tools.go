package gmail_tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/gmail"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/tools/common"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// Name is the registry name of the tool.
const Name = "gmail"

const (
	poolSize            = 3
	poolShutdownTimeout = 10 * time.Second
)

// Option configures a Tool.
type Option func(*Tool)

// WithSMTPAddr points the SMTP fallback at another server.
func WithSMTPAddr(addr string) Option {
	return func(t *Tool) { t.smtpAddr = addr }
}

// Tool sends mail and reads the mailbox.
type Tool struct {
	api      *common.GoogleService[*gmail.Client]
	deps     tools.Deps
	logger   *slog.Logger
	smtpAddr string
	actions  tools.Actions

	mu       sync.RWMutex
	smtp     *gmail.SMTPSender
	smtpPool *workerpool.Pool
}

// New creates an unconfigured Gmail tool.
func New(deps tools.Deps, opts ...Option) *Tool {
	t := &Tool{
		api: common.NewGoogleService(Name, instrumentation.ServiceGmail, poolSize, deps,
			func(a *google.Auth) (*gmail.Client, error) {
				svc, err := a.Gmail()
				if err != nil {
					return nil, err
				}
				return gmail.NewClient(svc), nil
			}),
		deps:     deps,
		logger:   logging.WithTool(deps.Log(), Name),
		smtpAddr: gmail.DefaultSMTPAddr,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.actions = tools.Actions{
		"send_email":      t.sendEmail,
		"send_html_email": t.sendHTMLEmail,
		"get_profile":     t.getProfile,
		"list_messages":   t.listMessages,
		"get_message":     t.getMessage,
		"search_messages": t.searchMessages,
	}
	return t
}

// Constructor returns a tools.Constructor for the registry.
func Constructor(deps tools.Deps, opts ...Option) tools.Constructor {
	return func() tools.Tool { return New(deps, opts...) }
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
		"Gmail/SMTP email operations for sending and managing emails",
		t.actions,
		map[string]any{
			"to": map[string]any{
				"type":        []string{"string", "array"},
				"description": "Recipient email(s)",
			},
			"cc":         stringArray("CC recipients"),
			"bcc":        stringArray("BCC recipients"),
			"from":       tools.Prop("string", "Sender email"),
			"subject":    tools.Prop("string", "Email subject"),
			"body":       tools.Prop("string", "Email body (plain text)"),
			"html_body":  tools.Prop("string", "Email body (HTML)"),
			"message_id": tools.Prop("string", "Gmail message ID"),
			"query":      tools.Prop("string", "Search query"),
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return",
				"default":     defaultMaxResults,
			},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"full", "metadata", "minimal", "raw"},
				"description": "Message format",
				"default":     defaultFormat,
			},
			"label_ids":  stringArray("Label IDs to filter by"),
			"page_token": tools.Prop("string", "Page token for pagination"),
			"include_spam_trash": map[string]any{
				"type":        "boolean",
				"description": "Include messages in spam and trash",
				"default":     false,
			},
		})
}

// Initialize prefers the Gmail API and validates it with a profile lookup.
// When the API is unavailable it falls back to SMTP if an app password is
// configured, verifying the login before reporting success.
func (t *Tool) Initialize(ctx context.Context, settings *config.Settings, auth *google.Auth) (bool, error) {
	ok, err := t.api.Initialize(ctx, auth)
	if err != nil {
		t.logger.Warn("Gmail API initialization failed", logging.Err(err))
	}
	if ok {
		err := t.api.Call(ctx, "get", func(ctx context.Context, c *gmail.Client) error {
			_, err := c.Profile(ctx)
			return err
		})
		if err == nil {
			t.logger.Info("Gmail API connection validated")
			return true, nil
		}
		t.logger.Warn("Gmail API initialization failed", logging.Err(err))
		t.api.Cleanup(ctx)
	}

	if settings == nil || settings.GmailEmail == "" || settings.GmailAppPassword == "" {
		t.logger.Warn("No Gmail credentials configured")
		return false, nil
	}

	sender := &gmail.SMTPSender{Addr: t.smtpAddr, Email: settings.GmailEmail, Password: settings.GmailAppPassword}
	pool := workerpool.New(Name+"_smtp", poolSize,
		workerpool.WithLogger(t.logger),
		workerpool.WithObserver(t.deps.Metrics))

	err = tools.CallAPI(ctx, pool, t.deps.Metrics, instrumentation.ServiceSMTP, "verify", sender.Verify)
	if err != nil {
		t.shutdownPool(ctx, pool)
		t.logger.Error("Gmail SMTP initialization failed", logging.Err(err))
		return false, fmt.Errorf("gmail SMTP login failed: %w", err)
	}

	t.mu.Lock()
	t.smtp = sender
	t.smtpPool = pool
	t.mu.Unlock()
	t.logger.Info("Gmail SMTP connection validated", logging.UserHash(settings.GmailEmail))
	return true, nil
}

// IsConfigured reports whether either transport is ready.
func (t *Tool) IsConfigured() bool {
	if t.api.IsConfigured() {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.smtp != nil
}

func (t *Tool) Execute(ctx context.Context, action string, params map[string]any) tools.Result {
	if !t.IsConfigured() {
		return tools.Failure("Gmail not configured", nil)
	}
	return t.actions.Dispatch(ctx, action, params)
}

// Cleanup releases both transports. It is idempotent.
func (t *Tool) Cleanup(ctx context.Context) {
	t.api.Cleanup(ctx)

	t.mu.Lock()
	pool := t.smtpPool
	t.smtp, t.smtpPool = nil, nil
	t.mu.Unlock()

	if pool != nil {
		t.shutdownPool(ctx, pool)
		t.logger.Info("Gmail SMTP transport closed")
	}
}

func (t *Tool) shutdownPool(ctx context.Context, pool *workerpool.Pool) {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		t.logger.Warn("smtp pool did not drain", logging.Err(err))
	}
}

// smtpTransport returns the SMTP sender and its pool, nil when not in use.
func (t *Tool) smtpTransport() (*gmail.SMTPSender, *workerpool.Pool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.smtp, t.smtpPool
}

var _ tools.Tool = (*Tool)(nil)
