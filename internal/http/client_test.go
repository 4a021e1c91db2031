package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/soundcloud-downloader/internal/logging"
)

// redirectServer answers the first n requests with 302 to /hop/<i+1> and
// every later request with 200 and body "done".
func redirectServer(t *testing.T, n int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		i := count.Add(1)
		if i <= n {
			nethttp.Redirect(w, r, fmt.Sprintf("/hop/%d", i), nethttp.StatusFound)
			return
		}
		w.Write([]byte("done"))
	}))
	t.Cleanup(srv.Close)
	return srv, &count
}

func newTestClient(opts ...Option) *Client {
	return NewClient(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func TestFetch_ReturnsTerminalResponse(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, res.Text())
	assert.Equal(t, "application/json", res.ContentType())
	assert.Equal(t, 0, res.Redirects)
}

func TestFetch_TwoRedirectsThenSuccess(t *testing.T) {
	srv, count := redirectServer(t, 2)

	res, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "done", res.Text())
	assert.Equal(t, 2, res.Redirects)
	assert.Equal(t, srv.URL+"/hop/2", res.URL)
}

func TestFetch_RedirectChainsWithinLimit(t *testing.T) {
	for k := int32(0); k <= DefaultRedirectLimit; k++ {
		t.Run(fmt.Sprintf("%d redirects", k), func(t *testing.T) {
			srv, count := redirectServer(t, k)

			res, err := newTestClient().Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, k+1, count.Load())
			assert.Equal(t, "done", res.Text())
		})
	}
}

func TestFetch_TooManyRedirects(t *testing.T) {
	srv, count := redirectServer(t, 10)

	res, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
	assert.Equal(t, int32(DefaultRedirectLimit+1), count.Load())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.NotNil(t, fe.Result)
	assert.Equal(t, nethttp.StatusFound, fe.Result.StatusCode)
	assert.Equal(t, "/hop/4", fe.Result.Location)
}

func TestFetch_CustomRedirectLimit(t *testing.T) {
	srv, count := redirectServer(t, 1)

	_, err := newTestClient(WithRedirectLimit(0)).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
	assert.Equal(t, int32(1), count.Load())
}

func TestFetch_RedirectWithoutLocationIsTerminal(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrStatus)
}

func TestFetch_FollowsAbsoluteLocationAcrossHosts(t *testing.T) {
	target := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte("cdn"))
	}))
	defer target.Close()
	origin := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Redirect(w, r, target.URL+"/stream.mp3", nethttp.StatusTemporaryRedirect)
	}))
	defer origin.Close()

	res, err := newTestClient().Fetch(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Equal(t, "cdn", res.Text())
	assert.Equal(t, target.URL+"/stream.mp3", res.URL)
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "nope", nethttp.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.NotErrorIs(t, err, ErrTransport)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindStatus, fe.Kind)
	assert.Equal(t, 404, fe.StatusCode)
	assert.Contains(t, fe.Result.Text(), "nope")
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient().Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Nil(t, fe.Result)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient().Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		got.Store(r.UserAgent())
	}))
	defer srv.Close()

	_, err := newTestClient(WithUserAgent("test-agent/1.0")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent/1.0", got.Load())
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if count.Add(1) == 1 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(WithRetries(2), WithRetryWait(time.Millisecond, 5*time.Millisecond))
	res, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text())
	assert.Equal(t, int32(2), count.Load())
}

func TestFetch_NoRetriesByDefault(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		count.Add(1)
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), count.Load())
}

func TestFetchTo_StreamsWithProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10_000)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/" {
			nethttp.Redirect(w, r, "/media", nethttp.StatusFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	var lastWritten, lastTotal int64
	res, err := newTestClient().FetchTo(context.Background(), srv.URL, &buf, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})
	require.NoError(t, err)
	assert.Nil(t, res.Body)
	assert.Equal(t, 1, res.Redirects)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestFetchTo_StatusErrorWritesNothing(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "gone", nethttp.StatusGone)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	_, err := newTestClient().FetchTo(context.Background(), srv.URL, &buf, nil)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Zero(t, buf.Len())
}

func TestFetchError_Message(t *testing.T) {
	err := NewError(KindStatus, "http://x", nil, &FetchResult{StatusCode: 500})
	assert.Equal(t, "fetch http://x: status (HTTP 500)", err.Error())

	cause := errors.New("boom")
	err = NewError(KindDecode, "http://x", cause, nil)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, cause)
}

func TestProgressWriter(t *testing.T) {
	var buf bytes.Buffer
	var calls int
	pw := &ProgressWriter{Writer: &buf, Total: 6, OnUpdate: func(written, total int64) { calls++ }}

	pw.Write([]byte("abc"))
	pw.Write([]byte("def"))

	assert.Equal(t, int64(6), pw.Written)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "abcdef", buf.String())
}
