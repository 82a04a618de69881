package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/salesmcp/internal/instrumentation"
	"github.com/teemow/salesmcp/internal/logging"
	"github.com/teemow/salesmcp/internal/workerpool"
)

// State is the lifecycle state of a Store.
type State int

const (
	StateUnloaded State = iota
	StateValid
	StateExpired
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// staleTokenRecheck is the lifetime reported for a token that is already
// past its refresh point.
const staleTokenRecheck = time.Minute

// Refresh result labels reported to a RefreshRecorder.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultStale   = "stale"
)

// RefreshRecorder receives refresh outcomes. instrumentation.Metrics satisfies it.
type RefreshRecorder interface {
	RecordCredentialRefresh(ctx context.Context, provider, result string)
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Provider names the credential in logs and metrics.
	Provider string

	// Path is the credential file. Empty disables persistence.
	Path string

	Refresher Refresher

	// Buffer treats a credential as expired this long before its expiry.
	Buffer time.Duration

	// AllowStaleOnRefreshFailure lets EnsureValid succeed with the current
	// access token when the provider rejects a refresh. It never applies
	// when there is no refresh token at all.
	AllowStaleOnRefreshFailure bool

	// Defaults filled into a loaded or seeded credential when it lacks them.
	ClientID     string
	ClientSecret string
	TokenURI     string
	Scopes       []string

	// Pool runs the provider call. Nil runs it on the caller's goroutine.
	Pool *workerpool.Pool

	Recorder RefreshRecorder
	Logger   *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store owns one OAuth2 credential: it loads and persists it, decides when it
// is expired, and refreshes it. Refreshes are serialized; reads are not.
//
// The store holds no reference to API clients built from the credential.
// Callers that cache such clients subscribe with OnRefresh.
type Store struct {
	cfg    StoreConfig
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cred  Credential
	state State
	subs  []func(Credential)

	refreshMu sync.Mutex
}

// NewStore creates an unloaded store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:    cfg,
		logger: logging.WithProvider(logger, cfg.Provider),
		now:    now,
		state:  StateUnloaded,
	}
}

// Provider returns the provider name.
func (s *Store) Provider() string { return s.cfg.Provider }

// Path returns the credential file path.
func (s *Store) Path() string { return s.cfg.Path }

// SetAllowStale changes the stale-token policy.
func (s *Store) SetAllowStale(allow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.AllowStaleOnRefreshFailure = allow
}

// SetClientDefaults sets the client id and secret filled into credentials
// that lack them, including the one already held.
func (s *Store) SetClientDefaults(clientID, clientSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ClientID = clientID
	s.cfg.ClientSecret = clientSecret
	if s.cred.ClientID == "" {
		s.cred.ClientID = clientID
	}
	if s.cred.ClientSecret == "" {
		s.cred.ClientSecret = clientSecret
	}
}

// Load reads the credential file.
// A missing file is not an error: it returns false and the store stays unloaded.
func (s *Store) Load() (bool, error) {
	if s.cfg.Path == "" {
		return false, nil
	}

	c, err := ReadFile(s.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("no credential file", "path", s.cfg.Path)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.install(c)
	s.logger.Info("loaded credential",
		"path", s.cfg.Path,
		"expired", s.IsExpired(),
		"access_token", logging.SanitizeToken(c.AccessToken))
	return true, nil
}

// Seed installs c as the current credential without touching disk.
func (s *Store) Seed(c Credential) {
	s.install(c)
}

func (s *Store) install(c Credential) {
	if c.ClientID == "" {
		c.ClientID = s.cfg.ClientID
	}
	if c.ClientSecret == "" {
		c.ClientSecret = s.cfg.ClientSecret
	}
	if c.TokenURI == "" {
		c.TokenURI = s.cfg.TokenURI
	}
	if len(c.Scopes) == 0 && len(s.cfg.Scopes) > 0 {
		c.Scopes = append([]string(nil), s.cfg.Scopes...)
	}
	if !c.Expiry.IsZero() {
		c.Expiry = c.Expiry.UTC()
	}

	s.mu.Lock()
	s.cred = c.clone()
	s.state = s.evalStateLocked()
	s.mu.Unlock()
}

// Save persists the current credential.
func (s *Store) Save() error {
	if s.cfg.Path == "" {
		return nil
	}
	if !s.Loaded() {
		return ErrNotLoaded
	}
	return WriteFile(s.cfg.Path, s.Credential())
}

// Loaded reports whether a credential is present.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.AccessToken != "" || s.cred.RefreshToken != ""
}

// Credential returns a copy of the current credential.
func (s *Store) Credential() Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.clone()
}

// AccessToken returns the current access token.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.AccessToken
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateValid && s.expiredLocked() {
		return StateExpired
	}
	return s.state
}

// IsExpired reports whether the credential must be refreshed before use:
// the expiry is unknown, or now is within Buffer of it.
func (s *Store) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiredLocked()
}

func (s *Store) expiredLocked() bool {
	if s.cred.Expiry.IsZero() {
		return true
	}
	return !s.now().Before(s.cred.Expiry.Add(-s.cfg.Buffer))
}

func (s *Store) evalStateLocked() State {
	if s.cred.AccessToken == "" && s.cred.RefreshToken == "" {
		return StateUnloaded
	}
	if s.expiredLocked() {
		return StateExpired
	}
	return StateValid
}

// TimeToExpiry returns how long the access token remains usable.
// It is zero when the expiry is unknown or passed.
func (s *Store) TimeToExpiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.Expiry.IsZero() {
		return 0
	}
	if d := s.cred.Expiry.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

// OnRefresh registers fn to run after every successful refresh.
func (s *Store) OnRefresh(fn func(Credential)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Refresh exchanges the refresh token for a new access token.
//
// On success the in-memory credential is replaced and persisted. On failure
// neither memory nor disk changes. Concurrent calls are serialized.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) error {
	current := s.Credential()
	if current.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	if current.ClientID == "" || current.ClientSecret == "" {
		return ErrMissingClientCredentials
	}
	if s.cfg.Refresher == nil {
		return &RefreshError{Provider: s.cfg.Provider, Err: errors.New("no refresher configured")}
	}

	ctx, span := instrumentation.StartRefreshSpan(ctx, s.cfg.Provider)
	defer span.End()

	s.setState(StateRefreshing)

	var tok *oauth2.Token
	call := func(ctx context.Context) error {
		t, err := s.cfg.Refresher.Refresh(ctx, current)
		if err != nil {
			return err
		}
		if t == nil || t.AccessToken == "" {
			return errors.New("provider returned an empty access token")
		}
		tok = t
		return nil
	}

	var err error
	if s.cfg.Pool != nil {
		err = s.cfg.Pool.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		s.setState(StateFailed)
		s.record(ctx, ResultFailure)
		instrumentation.SetSpanError(span, err)
		return &RefreshError{Provider: s.cfg.Provider, Err: err}
	}

	next := current.withToken(tok, s.now())

	s.mu.Lock()
	s.cred = next
	s.state = StateValid
	subs := append([]func(Credential){}, s.subs...)
	s.mu.Unlock()

	if s.cfg.Path != "" {
		if err := WriteFile(s.cfg.Path, next); err != nil {
			// The new token is still usable from memory.
			s.logger.Warn("failed to persist refreshed credential", "path", s.cfg.Path, logging.Err(err))
		}
	}

	s.record(ctx, ResultSuccess)
	instrumentation.SetSpanSuccess(span)
	s.logger.Info("credential refreshed",
		"expiry", next.Expiry.Format(time.RFC3339),
		"access_token", logging.SanitizeToken(next.AccessToken))

	for _, fn := range subs {
		fn(next.clone())
	}
	return nil
}

// RefreshIfDue refreshes the credential when it is expired or expires within
// minLifetime, and reports whether it did. The check is repeated under the
// refresh lock, so several loops sharing one store renew a due credential
// once.
func (s *Store) RefreshIfDue(ctx context.Context, minLifetime time.Duration) (bool, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if !s.IsExpired() && s.TimeToExpiry() >= minLifetime {
		return false, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureValid makes sure the credential is usable.
//
// An unexpired credential returns immediately without any network call.
// Otherwise it is refreshed. When the refresh fails at the provider and the
// stale policy is enabled, the current access token is kept in use.
func (s *Store) EnsureValid(ctx context.Context) error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if !s.IsExpired() {
		return nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if !s.IsExpired() {
		return nil
	}

	err := s.refreshLocked(ctx)
	if err == nil {
		return nil
	}

	var refreshErr *RefreshError
	s.mu.RLock()
	allowStale := s.cfg.AllowStaleOnRefreshFailure
	s.mu.RUnlock()
	if allowStale && errors.As(err, &refreshErr) && s.AccessToken() != "" {
		s.logger.Warn("refresh failed, continuing with current access token", logging.Err(err))
		s.record(ctx, ResultStale)
		return nil
	}
	return err
}

func (s *Store) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Store) record(ctx context.Context, result string) {
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.RecordCredentialRefresh(ctx, s.cfg.Provider, result)
	}
}

// TokenSource returns an oauth2.TokenSource backed by the store.
// Every Token call goes through EnsureValid, so clients built on it always
// sign requests with the current credential.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: s}
}

type storeTokenSource struct {
	ctx   context.Context
	store *Store
}

func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	if err := ts.store.EnsureValid(ts.ctx); err != nil {
		return nil, fmt.Errorf("%s credential: %w", ts.store.Provider(), err)
	}
	tok := ts.store.Credential().Token()
	// Report the time the store itself will want a refresh, so a caching
	// token source above this one comes back no later than that. A token
	// kept under the stale policy is rechecked after a minute.
	now := ts.store.now()
	tok.Expiry = tok.Expiry.Add(-ts.store.cfg.Buffer)
	if !tok.Expiry.After(now) {
		tok.Expiry = now.Add(staleTokenRecheck)
	}
	return tok, nil
}
