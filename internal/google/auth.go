package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	calendar "google.golang.org/api/calendar/v3"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/salesmcp/internal/config"
	"github.com/teemow/salesmcp/internal/credential"
	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// Service names accepted by Auth.Service.
const (
	ServiceCalendar = "calendar"
	ServiceGmail    = "gmail"
	ServiceDrive    = "drive"
)

const (
	// PoolSize is the number of workers shared by token refreshes and service builds.
	PoolSize = 2

	// MinLifetime makes refresh loops renew a token that has less than this left.
	MinLifetime = 10 * time.Minute

	poolShutdownTimeout = 10 * time.Second
)

var (
	// ErrNotAuthenticated means there is no stored Google credential.
	ErrNotAuthenticated = errors.New("google credentials not available")

	// ErrServiceUnavailable means the requested API service was not built.
	ErrServiceUnavailable = errors.New("google service not available")

	// ErrNoClientSecrets means neither client credentials nor a client secrets file are configured.
	ErrNoClientSecrets = errors.New("google client secrets not configured")
)

// Options tune an Auth beyond what Settings carries.
type Options struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// ClientOptions are appended per service name when building API clients,
	// e.g. option.WithEndpoint to point a service at a test server.
	ClientOptions map[string][]option.ClientOption
}

// Auth manages the Google credential shared by every Google tool and the
// API services built from it. It owns the credential store and a small
// worker pool; the tools own the refresh loops.
type Auth struct {
	settings *config.Settings
	opts     Options
	logger   *slog.Logger

	store *credential.Store
	pool  *workerpool.Pool

	// ctx signs API requests; it ends at Cleanup.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	services map[string]any
	ready    bool
	closed   bool
}

// NewAuth creates an Auth for settings. Nothing is read until Initialize.
func NewAuth(settings *config.Settings, opts Options) *Auth {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithProvider(logger, credential.ProviderGoogle)

	pool := workerpool.New("google_auth", PoolSize,
		workerpool.WithLogger(logger),
		workerpool.WithObserver(opts.Metrics))

	cfg := credential.GoogleStoreConfig(settings.GoogleTokenPath, "", "", settings.GoogleScopes)
	cfg.AllowStaleOnRefreshFailure = settings.Refresh.AllowStale
	cfg.Pool = pool
	cfg.Recorder = opts.Metrics
	cfg.Logger = opts.Logger

	ctx, cancel := context.WithCancel(context.Background())
	a := &Auth{
		settings: settings,
		opts:     opts,
		logger:   logger,
		pool:     pool,
		ctx:      ctx,
		cancel:   cancel,
		services: make(map[string]any),
	}
	a.store = credential.NewStore(cfg)
	a.store.OnRefresh(func(credential.Credential) {
		if err := a.buildServices(a.ctx); err != nil {
			a.logger.Warn("failed to rebuild google services after refresh", logging.Err(err))
		}
	})
	return a
}

// Initialize loads the stored credential, makes sure it is usable and builds
// the API services. It returns ErrNotAuthenticated when there is no token
// file; authorizing a new account is done outside the server.
func (a *Auth) Initialize(ctx context.Context) error {
	if err := a.applyClientSecrets(); err != nil {
		a.logger.Warn("could not read google client secrets", logging.Err(err))
	}

	loaded, err := a.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load google credential: %w", err)
	}
	if !loaded {
		return fmt.Errorf("%w: no token file at %s", ErrNotAuthenticated, a.settings.GoogleTokenPath)
	}

	if err := a.store.EnsureValid(ctx); err != nil {
		return fmt.Errorf("google credential unusable: %w", err)
	}

	if err := a.buildServices(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()

	a.logger.Info("google authentication initialized")
	return nil
}

// Refresh renews the stored credential even when it has not expired and
// persists the result. It is the one-shot path used outside a running server.
func (a *Auth) Refresh(ctx context.Context) error {
	if err := a.applyClientSecrets(); err != nil {
		return err
	}
	loaded, err := a.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load google credential: %w", err)
	}
	if !loaded {
		return fmt.Errorf("%w: no token file at %s", ErrNotAuthenticated, a.settings.GoogleTokenPath)
	}
	return a.store.Refresh(ctx)
}

// applyClientSecrets fills the client id and secret a stored token lacks.
func (a *Auth) applyClientSecrets() error {
	conf, err := OAuthConfig(a.settings)
	if errors.Is(err, ErrNoClientSecrets) {
		return nil
	}
	if err != nil {
		return err
	}
	a.store.SetClientDefaults(conf.ClientID, conf.ClientSecret)
	return nil
}

// OAuthConfig returns the OAuth2 client of the shared credential, from
// explicit settings first and the client secrets file second.
func OAuthConfig(settings *config.Settings) (*oauth2.Config, error) {
	if settings.GoogleClientID != "" && settings.GoogleClientSecret != "" {
		return &oauth2.Config{
			ClientID:     settings.GoogleClientID,
			ClientSecret: settings.GoogleClientSecret,
			Endpoint:     credential.GoogleEndpoint,
			Scopes:       settings.GoogleScopes,
		}, nil
	}

	data, err := os.ReadFile(settings.GoogleCredentialsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoClientSecrets, settings.GoogleCredentialsPath)
	}
	if err != nil {
		return nil, err
	}
	conf, err := googleoauth.ConfigFromJSON(data, settings.GoogleScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", settings.GoogleCredentialsPath, err)
	}
	return conf, nil
}

// Authorize runs the consent flow for a new Google account and writes the
// token file. The redirect is served on addr; open receives the consent URL.
func Authorize(ctx context.Context, settings *config.Settings, addr string, open func(authURL string)) (credential.Credential, error) {
	conf, err := OAuthConfig(settings)
	if err != nil {
		return credential.Credential{}, err
	}
	// The client secrets file may list a redirect the loopback listener does not serve.
	conf.RedirectURL = ""

	flow := &credential.LoopbackFlow{
		Config:          conf,
		Addr:            addr,
		AuthCodeOptions: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce},
		PKCE:            true,
	}
	c, err := flow.Run(ctx, open)
	if err != nil {
		return credential.Credential{}, err
	}
	if err := credential.WriteFile(settings.GoogleTokenPath, c); err != nil {
		return credential.Credential{}, err
	}
	return c, nil
}

// buildServices creates the calendar, gmail and drive clients concurrently
// on the pool. A service that fails to build is left out; the call fails
// only when none could be built.
func (a *Auth) buildServices(ctx context.Context) error {
	ts := a.store.TokenSource(a.ctx)
	clientOpts := func(name string) []option.ClientOption {
		return append([]option.ClientOption{option.WithTokenSource(ts)}, a.opts.ClientOptions[name]...)
	}

	builders := map[string]func(ctx context.Context) (any, error){
		ServiceCalendar: func(ctx context.Context) (any, error) {
			return calendar.NewService(ctx, clientOpts(ServiceCalendar)...)
		},
		ServiceGmail: func(ctx context.Context) (any, error) {
			return gmail.NewService(ctx, clientOpts(ServiceGmail)...)
		},
		ServiceDrive: func(ctx context.Context) (any, error) {
			return drive.NewService(ctx, clientOpts(ServiceDrive)...)
		},
	}

	var mu sync.Mutex
	built := make(map[string]any, len(builders))

	g, gctx := errgroup.WithContext(ctx)
	for name, build := range builders {
		g.Go(func() error {
			return a.pool.Do(gctx, func(ctx context.Context) error {
				svc, err := build(ctx)
				if err != nil {
					a.logger.Warn("could not build google service", logging.Service(name), logging.Err(err))
					return nil
				}
				mu.Lock()
				built[name] = svc
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to build google services: %w", err)
	}
	if len(built) == 0 {
		return fmt.Errorf("failed to build google services: %w", ErrServiceUnavailable)
	}

	a.mu.Lock()
	a.services = built
	a.mu.Unlock()

	a.logger.Debug("built google services", "count", len(built))
	return nil
}

// Service returns the API service registered under name.
func (a *Auth) Service(name string) (any, error) {
	if a == nil {
		return nil, ErrNotAuthenticated
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	svc, ok := a.services[name]
	if !ok || a.closed {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, name)
	}
	return svc, nil
}

// Calendar returns the Calendar API service.
func (a *Auth) Calendar() (*calendar.Service, error) {
	svc, err := a.Service(ServiceCalendar)
	if err != nil {
		return nil, err
	}
	return svc.(*calendar.Service), nil
}

// Gmail returns the Gmail API service.
func (a *Auth) Gmail() (*gmail.Service, error) {
	svc, err := a.Service(ServiceGmail)
	if err != nil {
		return nil, err
	}
	return svc.(*gmail.Service), nil
}

// Drive returns the Drive API service.
func (a *Auth) Drive() (*drive.Service, error) {
	svc, err := a.Service(ServiceDrive)
	if err != nil {
		return nil, err
	}
	return svc.(*drive.Service), nil
}

// IsAuthenticated reports whether Initialize succeeded and a credential is held.
func (a *Auth) IsAuthenticated() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	ready := a.ready && !a.closed
	a.mu.RUnlock()
	return ready && a.store.Loaded()
}

// Store returns the shared credential store.
func (a *Auth) Store() *credential.Store { return a.store }

// NewRefreshLoop returns a stopped loop over the shared credential, tuned
// from settings. onRefreshed runs after each refresh the loop performs.
func (a *Auth) NewRefreshLoop(onRefreshed func(ctx context.Context) error) *credential.RefreshLoop {
	return credential.NewRefreshLoop(a.store, credential.LoopConfig{
		Interval:      a.settings.Refresh.Interval,
		MinLifetime:   MinLifetime,
		RetryCooldown: a.settings.Refresh.RetryCooldown,
		OnRefreshed:   onRefreshed,
	}, a.opts.Logger)
}

// Cleanup drops the services and shuts the pool down. It is idempotent.
func (a *Auth) Cleanup(ctx context.Context) {
	if a == nil {
		return
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.ready = false
	a.services = map[string]any{}
	a.mu.Unlock()

	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	if err := a.pool.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("google auth pool did not drain", logging.Err(err))
	}
	a.logger.Info("google auth manager cleaned up")
}
