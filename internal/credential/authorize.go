package credential

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrAuthorizationDenied means the user or the provider rejected the consent request.
var ErrAuthorizationDenied = errors.New("authorization denied")

// LoopbackFlow runs the OAuth2 authorization-code grant for a local user:
// it serves the redirect on a loopback address, hands the consent URL to the
// caller and exchanges the returned code for a credential.
type LoopbackFlow struct {
	Config *oauth2.Config

	// Addr is the listen address of the redirect handler, e.g. "localhost:5000".
	// When Config.RedirectURL is empty it becomes http://<Addr>/.
	Addr string

	// AuthCodeOptions are added to the consent URL, e.g. oauth2.AccessTypeOffline.
	AuthCodeOptions []oauth2.AuthCodeOption

	// PKCE adds an S256 code challenge to the consent URL and the verifier to the exchange.
	PKCE bool

	// HTTPClient is used for the code exchange when non-nil.
	HTTPClient *http.Client
}

type callbackResult struct {
	code string
	err  error
}

// Run listens on Addr, calls open with the consent URL and waits for the
// provider to redirect back, or for ctx to end. The returned credential
// carries the client id, secret, token URI and scopes of Config.
func (f *LoopbackFlow) Run(ctx context.Context, open func(authURL string)) (Credential, error) {
	ln, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to listen for the OAuth redirect on %s: %w", f.Addr, err)
	}

	conf := *f.Config
	if conf.RedirectURL == "" {
		conf.RedirectURL = "http://" + ln.Addr().String() + "/"
	}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authOpts := f.AuthCodeOptions
	var exchangeOpts []oauth2.AuthCodeOption
	if f.PKCE {
		verifier := oauth2.GenerateVerifier()
		authOpts = append(authOpts[:len(authOpts):len(authOpts)], oauth2.S256ChallengeOption(verifier))
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}

	open(conf.AuthCodeURL(state, authOpts...))

	var res callbackResult
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return Credential{}, res.err
	}

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	tok, err := conf.Exchange(ctx, res.code, exchangeOpts...)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	c := Credential{
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       conf.Scopes,
	}
	return c.withToken(tok, time.Now()), nil
}

// callbackHandler accepts the first redirect carrying state and reports its
// outcome on results. Later requests get a short notice.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
			return
		}

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrAuthorizationDenied, q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("redirect carried no authorization code")
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
			http.Error(w, "Authorization already handled", http.StatusConflict)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<h1>Authorization failed</h1><p>%s</p>", html.EscapeString(res.err.Error()))
			return
		}
		fmt.Fprint(w, "<h1>Authorization complete</h1><p>You can close this window.</p>")
	})
}
