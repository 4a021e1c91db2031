package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// DefaultConnectURL is the SoundCloud consent page.
	DefaultConnectURL = "https://soundcloud.com/connect"

	// DefaultPort is the loopback port registered as redirect URI.
	DefaultPort = 8080

	// DefaultCallbackPath is the loopback path registered as redirect URI.
	DefaultCallbackPath = "soundcloud-authentication"

	shutdownTimeout = 5 * time.Second
)

const (
	ackHTML    = `<html><head><title>Authentication Status</title></head><body>Authenticated! You can now return to your application.</body></html>`
	failedHTML = `<html><head><title>Authentication Status</title></head><body>Authentication failed. You can close this window.</body></html>`
)

var (
	// ErrListen is returned when the loopback listener cannot be bound,
	// typically because the port is already in use.
	ErrListen = errors.New("cannot start loopback listener")

	// ErrDenied is returned when the provider redirected back with an error,
	// e.g. because the user refused access.
	ErrDenied = errors.New("authorization denied")

	// ErrStateMismatch is returned when the callback state does not match
	// the state sent with the consent URL.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrMissingCode is returned when the callback carried no code.
	ErrMissingCode = errors.New("callback carried no authorization code")

	// ErrTimeout is returned when no callback arrived before the deadline.
	ErrTimeout = errors.New("authentication timed out")

	// ErrCancelled is returned when the context was cancelled while waiting.
	ErrCancelled = errors.New("authentication cancelled")

	// ErrNotIdle is returned by Authenticate when an attempt is running or
	// has finished and the authenticator was not Reset.
	ErrNotIdle = errors.New("authenticator is not idle")
)

// State is the lifecycle of a single authentication attempt.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config describes the registered SoundCloud application.
type Config struct {
	// ClientID identifies the application to SoundCloud.
	ClientID string

	// ConnectURL is the consent page. Defaults to DefaultConnectURL.
	ConnectURL string

	// Port is the loopback port. Zero picks a free port, which is only
	// useful when the provider accepts any loopback redirect URI.
	Port int

	// CallbackPath is the path of the redirect URI, without leading slash.
	CallbackPath string

	// Timeout bounds the wait for the callback. Zero waits until the
	// context is done.
	Timeout time.Duration
}

// Grant is what the provider handed back on the loopback redirect.
type Grant struct {
	// Code is the authorization code, to be exchanged for a token.
	Code string

	// State echoes the state sent with the consent URL.
	State string

	// RedirectURI is the loopback URI the code was issued for. The token
	// exchange must present the same value.
	RedirectURI string

	// RawQuery is the unparsed query string of the callback.
	RawQuery string
}

// Authenticator runs the OAuth authorization-code flow through a loopback
// redirect: it serves a short-lived HTTP listener on localhost, opens the
// consent page in the browser, and waits for the provider to redirect back.
//
// An Authenticator is single-shot. After an attempt ends it stays in
// StateAuthenticated or StateFailed until Reset is called.
type Authenticator struct {
	cfg    Config
	opener Opener
	logger *slog.Logger

	state         atomic.Int32
	authenticated atomic.Bool
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithOpener sets how the consent URL is shown to the user.
func WithOpener(o Opener) Option {
	return func(a *Authenticator) { a.opener = o }
}

// WithLogger sets the authenticator logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// New creates an idle Authenticator. Empty Config fields take the
// package defaults, except Port, where zero means any free port.
func New(cfg Config, opts ...Option) *Authenticator {
	if cfg.ConnectURL == "" {
		cfg.ConnectURL = DefaultConnectURL
	}
	cfg.CallbackPath = strings.TrimPrefix(cfg.CallbackPath, "/")
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}

	a := &Authenticator{
		cfg:    cfg,
		opener: BrowserOpener(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current state.
func (a *Authenticator) State() State {
	return State(a.state.Load())
}

// Authenticated reports whether the last attempt succeeded. It turns true
// only after the acknowledgment page was written and the listener stopped.
func (a *Authenticator) Authenticated() bool {
	return a.authenticated.Load()
}

// Reset returns a finished authenticator to StateIdle so it can run
// another attempt. It reports false, and does nothing, while an attempt
// is running.
func (a *Authenticator) Reset() bool {
	for {
		s := a.state.Load()
		if State(s) == StateListening {
			return false
		}
		if a.state.CompareAndSwap(s, int32(StateIdle)) {
			a.authenticated.Store(false)
			return true
		}
	}
}

type callbackResult struct {
	grant *Grant
	err   error
}

// Authenticate runs one authorization attempt and blocks until the
// provider redirects back, the timeout expires, or ctx is done.
//
// The listener lives only for the duration of the call: it is shut down on
// every exit path and accepts no connections once Authenticate returns.
//
// Example:
//
//	a := auth.New(auth.Config{ClientID: id, Port: 8080, Timeout: 5 * time.Minute})
//	grant, err := a.Authenticate(ctx)
//	if errors.Is(err, auth.ErrListen) {
//	    // port 8080 is taken
//	}
//	fmt.Println(grant.Code)
func (a *Authenticator) Authenticate(ctx context.Context) (*Grant, error) {
	if !a.state.CompareAndSwap(int32(StateIdle), int32(StateListening)) {
		return nil, ErrNotIdle
	}

	grant, err := a.run(ctx)
	if err != nil {
		a.state.Store(int32(StateFailed))
		return nil, err
	}

	a.authenticated.CompareAndSwap(false, true)
	a.state.Store(int32(StateAuthenticated))
	return grant, nil
}

func (a *Authenticator) run(ctx context.Context) (*Grant, error) {
	addr := net.JoinHostPort("localhost", strconv.Itoa(a.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		a.logger.Error("Failed to start loopback listener", "addr", addr, "error", err)
		return nil, fmt.Errorf("%w on %s: %w", ErrListen, addr, err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURI := fmt.Sprintf("http://localhost:%d/%s", port, a.cfg.CallbackPath)
	state := uuid.NewString()

	oauthCfg := &oauth2.Config{
		ClientID:    a.cfg.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: a.cfg.ConnectURL},
		RedirectURL: redirectURI,
	}
	consentURL := oauthCfg.AuthCodeURL(state)

	results := make(chan callbackResult, 1)
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/"+a.cfg.CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		handled := false
		once.Do(func() {
			handled = true
			a.logger.Info("Received authorization callback", "path", r.URL.Path)

			grant, err := parseCallback(r.URL, state, redirectURI)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Connection", "close")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = fmt.Fprint(w, failedHTML)
			} else {
				_, _ = fmt.Fprint(w, ackHTML)
			}
			results <- callbackResult{grant: grant, err: err}
		})
		if !handled {
			http.Error(w, "authentication already completed", http.StatusGone)
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logger.Debug("Starting loopback listener", "redirect_uri", redirectURI)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer a.shutdown(server, &wg)

	a.logger.Debug("Opening browser", "url", consentURL)
	if err := a.opener.Open(consentURL); err != nil {
		// the user can still open the page by hand
		a.logger.Warn("Failed to automatically open browser", "error", err)
		a.logger.Info("Please manually open the following URL in your browser", "url", consentURL)
	}

	waitCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	select {
	case res := <-results:
		if res.err != nil {
			a.logger.Warn("Authorization callback rejected", "error", res.err)
		}
		return res.grant, res.err
	case err := <-serveErr:
		a.logger.Error("Loopback listener failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrListen, err)
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			a.logger.Warn("Timed out waiting for authorization callback")
			return nil, fmt.Errorf("%w: %w", ErrTimeout, waitCtx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrCancelled, waitCtx.Err())
	}
}

// shutdown stops the server, waiting for in-flight responses to be
// written, and returns once the serve goroutine has exited.
func (a *Authenticator) shutdown(server *http.Server, wg *sync.WaitGroup) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Debug("Graceful shutdown of loopback listener failed", "error", err)
		_ = server.Close()
	}
	wg.Wait()
	a.logger.Debug("Loopback listener stopped")
}

func parseCallback(u *url.URL, wantState, redirectURI string) (*Grant, error) {
	q := u.Query()
	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return nil, fmt.Errorf("%w: %s (%s)", ErrDenied, e, desc)
		}
		return nil, fmt.Errorf("%w: %s", ErrDenied, e)
	}
	if got := q.Get("state"); got != wantState {
		return nil, fmt.Errorf("%w: got %q", ErrStateMismatch, got)
	}
	code := q.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}
	return &Grant{
		Code:        code,
		State:       wantState,
		RedirectURI: redirectURI,
		RawQuery:    u.RawQuery,
	}, nil
}
