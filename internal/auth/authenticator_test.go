package auth

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/soundcloud-downloader/internal/logging"
)

// consent is what the fake browser learned from the consent URL.
type consent struct {
	url         *url.URL
	redirectURI string
	state       string
}

func parseConsent(t *testing.T, raw string) consent {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	return consent{url: u, redirectURI: q.Get("redirect_uri"), state: q.Get("state")}
}

// browserGet requests the callback the way a browser following the
// provider redirect would, and returns status and body.
func browserGet(t *testing.T, target string) (int, string) {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func newTestAuthenticator(cfg Config, opener OpenerFunc) *Authenticator {
	if cfg.ClientID == "" {
		cfg.ClientID = "client-1"
	}
	return New(cfg, WithOpener(opener), WithLogger(logging.Discard()))
}

func assertListenerClosed(t *testing.T, redirectURI string) {
	t.Helper()
	u, err := url.Parse(redirectURI)
	require.NoError(t, err)
	conn, err := net.DialTimeout("tcp", u.Host, time.Second)
	if err == nil {
		conn.Close()
		t.Fatalf("listener on %s still accepts connections", u.Host)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	var seen consent
	var status int
	var body string
	a := newTestAuthenticator(Config{ConnectURL: "https://soundcloud.example/connect"}, func(raw string) error {
		seen = parseConsent(t, raw)
		// favicon and other paths do not count as the callback
		code, _ := browserGet(t, "http://"+hostOf(t, seen.redirectURI)+"/favicon.ico")
		assert.Equal(t, http.StatusNotFound, code)

		status, body = browserGet(t, seen.redirectURI+"?code=abc&state="+url.QueryEscape(seen.state))
		return nil
	})

	assert.Equal(t, StateIdle, a.State())
	assert.False(t, a.Authenticated())

	grant, err := a.Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc", grant.Code)
	assert.Equal(t, seen.state, grant.State)
	assert.Equal(t, seen.redirectURI, grant.RedirectURI)
	assert.True(t, a.Authenticated())
	assert.Equal(t, StateAuthenticated, a.State())

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Authenticated!")

	assert.Equal(t, "soundcloud.example", seen.url.Host)
	assert.Equal(t, "/connect", seen.url.Path)
	q := seen.url.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.NotEmpty(t, seen.state)
	assert.Regexp(t, `^http://localhost:\d+/soundcloud-authentication$`, seen.redirectURI)

	assertListenerClosed(t, seen.redirectURI)
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Host
}

func TestAuthenticate_SingleShot(t *testing.T) {
	a := newTestAuthenticator(Config{}, func(raw string) error {
		c := parseConsent(t, raw)
		browserGet(t, c.redirectURI+"?code=abc&state="+url.QueryEscape(c.state))
		return nil
	})

	_, err := a.Authenticate(context.Background())
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNotIdle)
	assert.True(t, a.Authenticated())

	require.True(t, a.Reset())
	assert.Equal(t, StateIdle, a.State())
	assert.False(t, a.Authenticated())

	_, err = a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, a.Authenticated())
}

func TestAuthenticate_OnlyFirstCallbackCounts(t *testing.T) {
	var first, second int
	var secondBody string
	a := newTestAuthenticator(Config{}, func(raw string) error {
		c := parseConsent(t, raw)
		first, _ = browserGet(t, c.redirectURI+"?code=first&state="+url.QueryEscape(c.state))
		second, secondBody = browserGet(t, c.redirectURI+"?code=second&state="+url.QueryEscape(c.state))
		return nil
	})

	grant, err := a.Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, first)
	assert.Equal(t, http.StatusGone, second)
	assert.Contains(t, secondBody, "already completed")
	assert.Equal(t, "first", grant.Code)
	assert.True(t, a.Authenticated())
}

func TestAuthenticate_CallbackFailures(t *testing.T) {
	tests := []struct {
		name    string
		query   func(state string) string
		wantErr error
	}{
		{"denied", func(state string) string { return "error=access_denied&state=" + state }, ErrDenied},
		{"state mismatch", func(string) string { return "code=abc&state=forged" }, ErrStateMismatch},
		{"missing code", func(state string) string { return "state=" + state }, ErrMissingCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var redirectURI string
			var status int
			a := newTestAuthenticator(Config{}, func(raw string) error {
				c := parseConsent(t, raw)
				redirectURI = c.redirectURI
				status, _ = browserGet(t, c.redirectURI+"?"+tt.query(url.QueryEscape(c.state)))
				return nil
			})

			grant, err := a.Authenticate(context.Background())
			assert.Nil(t, grant)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, StateFailed, a.State())
			assert.False(t, a.Authenticated())
			assertListenerClosed(t, redirectURI)
		})
	}
}

func TestAuthenticate_Timeout(t *testing.T) {
	var redirectURI string
	a := newTestAuthenticator(Config{Timeout: 50 * time.Millisecond}, func(raw string) error {
		redirectURI = parseConsent(t, raw).redirectURI
		return nil
	})

	_, err := a.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateFailed, a.State())
	assertListenerClosed(t, redirectURI)
}

func TestAuthenticate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var redirectURI string
	a := newTestAuthenticator(Config{}, func(raw string) error {
		redirectURI = parseConsent(t, raw).redirectURI
		time.AfterFunc(20*time.Millisecond, cancel)
		return nil
	})

	_, err := a.Authenticate(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, a.State())
	assertListenerClosed(t, redirectURI)
}

func TestAuthenticate_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	var opened atomic.Bool
	a := newTestAuthenticator(Config{Port: port}, func(string) error {
		opened.Store(true)
		return nil
	})

	_, err = a.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrListen)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
	assert.Equal(t, StateFailed, a.State())
	assert.False(t, opened.Load(), "browser must not open when the listener is down")
}

func TestAuthenticate_OpenerFailureIsNotFatal(t *testing.T) {
	a := newTestAuthenticator(Config{Timeout: 5 * time.Second}, func(raw string) error {
		c := parseConsent(t, raw)
		go func() {
			resp, err := http.Get(c.redirectURI + "?code=xyz&state=" + url.QueryEscape(c.state))
			if err == nil {
				resp.Body.Close()
			}
		}()
		return errors.New("no display")
	})

	grant, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xyz", grant.Code)
}

func TestAuthenticate_CustomCallbackPath(t *testing.T) {
	var redirectURI string
	a := newTestAuthenticator(Config{CallbackPath: "/cb"}, func(raw string) error {
		c := parseConsent(t, raw)
		redirectURI = c.redirectURI
		browserGet(t, c.redirectURI+"?code=1&state="+url.QueryEscape(c.state))
		return nil
	})

	_, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `/cb$`, redirectURI)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "failed", StateFailed.String())
}
