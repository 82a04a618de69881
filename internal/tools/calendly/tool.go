package calendly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/google"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/tools"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// Name is the registry name of the tool.
const Name = "calendly"

const (
	poolSize            = 2
	minLifetime         = 10 * time.Minute
	poolShutdownTimeout = 10 * time.Second
)

// Option configures a Tool.
type Option func(*Tool)

// WithBaseURL points the tool at another API base URL.
func WithBaseURL(u string) Option {
	return func(t *Tool) { t.baseURL = u }
}

// WithTokenURL overrides the OAuth2 token endpoint used for refreshes.
func WithTokenURL(u string) Option {
	return func(t *Tool) { t.tokenURL = u }
}

// WithHTTPClient sets the HTTP client used for API and token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tool) { t.httpClient = c }
}

// WithClock overrides the clock the credential store uses for expiry.
func WithClock(now func() time.Time) Option {
	return func(t *Tool) { t.now = now }
}

// Tool exposes Calendly scheduling: event types, scheduled events,
// invitees and webhook subscriptions.
//
// With OAuth client credentials and a refresh token it owns a credential
// store, persisted at CALENDLY_TOKEN_PATH, and a refresh loop. With only an
// access token (a personal access token) it signs requests with that token
// as is.
type Tool struct {
	deps       tools.Deps
	logger     *slog.Logger
	baseURL    string
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time
	actions    tools.Actions

	mu          sync.RWMutex
	store       *credential.Store
	loop        *credential.RefreshLoop
	pool        *workerpool.Pool
	refreshPool *workerpool.Pool
	client      *Client
	userURI     string
	configured  bool
}

// New creates an unconfigured Calendly tool.
func New(deps tools.Deps, opts ...Option) *Tool {
	t := &Tool{
		deps:    deps,
		logger:  logging.WithTool(deps.Log(), Name),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.actions = tools.Actions{
		"get_user":               t.getUser,
		"list_event_types":       t.listEventTypes,
		"get_event_type":         t.getEventType,
		"list_scheduled_events":  t.listScheduledEvents,
		"get_scheduled_event":    t.getScheduledEvent,
		"cancel_scheduled_event": t.cancelScheduledEvent,
		"list_invitees":          t.listInvitees,
		"get_invitee":            t.getInvitee,
		"create_webhook":         t.createWebhook,
		"list_webhooks":          t.listWebhooks,
		"delete_webhook":         t.deleteWebhook,
	}
	return t
}

// Constructor returns a tools.Constructor for the registry.
func Constructor(deps tools.Deps, opts ...Option) tools.Constructor {
	return func() tools.Tool { return New(deps, opts...) }
}

func (t *Tool) Name() string { return Name }

func (t *Tool) Descriptor() tools.Descriptor {
	return tools.NewDescriptor(Name,
		"Calendly scheduling operations for events, invitees, and webhooks",
		t.actions,
		map[string]any{
			"event_type_uuid": tools.Prop("string", "Event type UUID"),
			"event_uuid":      tools.Prop("string", "Scheduled event UUID"),
			"invitee_uuid":    tools.Prop("string", "Invitee UUID"),
			"webhook_uuid":    tools.Prop("string", "Webhook UUID"),
			"user":            tools.Prop("string", "User URI"),
			"organization":    tools.Prop("string", "Organization URI"),
			"url":             tools.Prop("string", "Webhook URL"),
			"events": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Webhook events",
			},
			"scope": map[string]any{
				"type":        "string",
				"enum":        []string{"user", "organization"},
				"description": "Webhook scope",
			},
			"status":         tools.Prop("string", "Event status filter"),
			"reason":         tools.Prop("string", "Cancellation reason"),
			"email":          tools.Prop("string", "Invitee email filter"),
			"min_start_time": tools.Prop("string", "Minimum start time (ISO 8601)"),
			"max_start_time": tools.Prop("string", "Maximum start time (ISO 8601)"),
			"count": map[string]any{
				"type":        "integer",
				"description": "Results count",
				"default":     defaultCount,
			},
			"page_token": tools.Prop("string", "Pagination token"),
			"sort":       tools.Prop("string", "Sort order"),
		})
}

// Initialize resolves the Calendly credential, validates it against
// /users/me and starts the refresh loop when the credential can renew itself.
func (t *Tool) Initialize(ctx context.Context, settings *config.Settings, _ *google.Auth) (bool, error) {
	pool := workerpool.New(Name, poolSize, workerpool.WithLogger(t.logger), workerpool.WithObserver(t.deps.Metrics))
	// API calls run on pool and fetch their token from inside it, so the
	// refresh must never queue behind them.
	refreshPool := workerpool.New(Name+"_refresh", 1, workerpool.WithLogger(t.logger), workerpool.WithObserver(t.deps.Metrics))
	cfg := t.storeConfig(settings)
	cfg.Pool = refreshPool
	store := credential.NewStore(cfg)

	t.mu.Lock()
	t.pool = pool
	t.refreshPool = refreshPool
	t.store = store
	t.mu.Unlock()

	loaded, err := store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load calendly credential: %w", err)
	}
	if !loaded {
		// The token file is written on the first refresh; until then the
		// environment is the source.
		if settings.CalendlyAccessToken == "" && settings.CalendlyRefreshToken == "" {
			t.logger.Warn("Calendly access token not configured")
			return false, nil
		}
		store.Seed(credential.Credential{
			AccessToken:  settings.CalendlyAccessToken,
			RefreshToken: settings.CalendlyRefreshToken,
		})
	}

	refreshable := store.Credential().CanRefresh()

	var ts oauth2.TokenSource
	if refreshable {
		if err := store.EnsureValid(ctx); err != nil {
			return false, fmt.Errorf("calendly OAuth token refresh failed: %w", err)
		}
		ts = store.TokenSource(context.Background())
	} else {
		token := store.AccessToken()
		if token == "" {
			t.logger.Warn("Calendly refresh token present but client credentials missing")
			return false, nil
		}
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}

	client := NewClient(context.Background(), t.baseURL, ts, t.httpClient, pool, t.deps.Metrics)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return false, fmt.Errorf("calendly authentication failed: %w", err)
	}
	userURI, _ := user["uri"].(string)
	email, _ := user["email"].(string)

	var loop *credential.RefreshLoop
	if refreshable {
		loop = credential.NewRefreshLoop(store, credential.LoopConfig{
			Interval:      settings.Refresh.CalendlyInterval,
			MinLifetime:   minLifetime,
			RetryCooldown: settings.Refresh.RetryCooldown,
		}, t.deps.Logger)
		if err := loop.Start(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, credential.ErrLoopRunning) {
			return false, err
		}
	}

	t.mu.Lock()
	t.client = client
	t.userURI = userURI
	t.loop = loop
	t.configured = true
	t.mu.Unlock()

	t.logger.Info("Calendly authenticated", logging.UserHash(email), "refreshable", refreshable)
	return true, nil
}

// Refresh renews the stored Calendly credential once and persists it,
// without validating it against the API. With no token file yet the
// refresh token comes from the settings.
func (t *Tool) Refresh(ctx context.Context, settings *config.Settings) (credential.Credential, error) {
	store := credential.NewStore(t.storeConfig(settings))

	loaded, err := store.Load()
	if err != nil {
		return credential.Credential{}, fmt.Errorf("failed to load calendly credential: %w", err)
	}
	if !loaded {
		if settings.CalendlyRefreshToken == "" {
			return credential.Credential{}, credential.ErrNoRefreshToken
		}
		store.Seed(credential.Credential{
			AccessToken:  settings.CalendlyAccessToken,
			RefreshToken: settings.CalendlyRefreshToken,
		})
	}

	if err := store.Refresh(ctx); err != nil {
		return credential.Credential{}, err
	}
	return store.Credential(), nil
}

// Authorize runs the consent flow for a Calendly OAuth application and writes
// the token file. The redirect is served on addr, which must match the
// redirect URI registered for the application.
func (t *Tool) Authorize(ctx context.Context, settings *config.Settings, addr string, open func(authURL string)) (credential.Credential, error) {
	if settings.CalendlyClientID == "" || settings.CalendlyClientSecret == "" {
		return credential.Credential{}, credential.ErrMissingClientCredentials
	}

	endpoint := credential.CalendlyEndpoint
	if t.tokenURL != "" {
		endpoint.TokenURL = t.tokenURL
	}
	flow := &credential.LoopbackFlow{
		Config: &oauth2.Config{
			ClientID:     settings.CalendlyClientID,
			ClientSecret: settings.CalendlyClientSecret,
			Endpoint:     endpoint,
		},
		Addr:       addr,
		HTTPClient: t.httpClient,
	}
	c, err := flow.Run(ctx, open)
	if err != nil {
		return credential.Credential{}, err
	}
	if err := credential.WriteFile(settings.CalendlyTokenPath, c); err != nil {
		return credential.Credential{}, err
	}
	return c, nil
}

func (t *Tool) storeConfig(settings *config.Settings) credential.StoreConfig {
	cfg := credential.CalendlyStoreConfig(settings.CalendlyTokenPath, settings.CalendlyClientID, settings.CalendlyClientSecret)
	if t.tokenURL != "" {
		cfg.TokenURI = t.tokenURL
		cfg.Refresher = &credential.OAuth2Refresher{Endpoint: oauth2.Endpoint{TokenURL: t.tokenURL, AuthStyle: oauth2.AuthStyleInParams}, HTTPClient: t.httpClient}
	} else if t.httpClient != nil {
		cfg.Refresher = &credential.OAuth2Refresher{Endpoint: credential.CalendlyEndpoint, HTTPClient: t.httpClient}
	}
	cfg.Recorder = t.deps.Metrics
	cfg.Logger = t.deps.Logger
	cfg.Now = t.now
	cfg.AllowStaleOnRefreshFailure = settings.Refresh.AllowStale
	return cfg
}

func (t *Tool) IsConfigured() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.configured
}

func (t *Tool) Execute(ctx context.Context, action string, params map[string]any) tools.Result {
	if !t.IsConfigured() {
		return tools.Failure("Calendly not configured", nil)
	}
	return t.actions.Dispatch(ctx, action, params)
}

// Cleanup stops the refresh loop and drains both pools.
func (t *Tool) Cleanup(ctx context.Context) {
	t.mu.Lock()
	loop, pool, refreshPool := t.loop, t.pool, t.refreshPool
	t.loop, t.pool, t.refreshPool = nil, nil, nil
	t.configured = false
	t.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	if pool == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		t.logger.Warn("calendly pool did not drain", logging.Err(err))
	}
	if refreshPool != nil {
		if err := refreshPool.Shutdown(shutdownCtx); err != nil {
			t.logger.Warn("calendly refresh pool did not drain", logging.Err(err))
		}
	}
	t.logger.Info("Calendly tool cleaned up")
}

// CredentialStore returns the store behind the tool, or nil before Initialize.
func (t *Tool) CredentialStore() *credential.Store {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store
}

func (t *Tool) api() (*Client, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client, t.userURI
}
