package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultRedirectLimit is the number of redirect hops Fetch follows before
// giving up with ErrTooManyRedirects.
const DefaultRedirectLimit = 3

// FetchResult is the terminal response of a fetch. It is never modified
// after being returned.
type FetchResult struct {
	// URL is the address of the final hop.
	URL string

	// StatusCode is the HTTP status of the final hop.
	StatusCode int

	// Header holds the response headers of the final hop.
	Header http.Header

	// Body is the full response body. It is nil for results returned by
	// FetchTo, whose body went to the caller's writer.
	Body []byte

	// Location is the redirect target of the final hop, if it carried one.
	Location string

	// Redirects is the number of redirect hops that were followed.
	Redirects int
}

// Text returns the body as a string.
func (r *FetchResult) Text() string {
	return string(r.Body)
}

// ContentType returns the Content-Type header of the final hop.
func (r *FetchResult) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Fetcher issues a GET and follows redirects up to a limit.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Streamer is a Fetcher that can copy the final body to a writer instead of
// buffering it.
type Streamer interface {
	Fetcher
	FetchTo(ctx context.Context, url string, w io.Writer, onProgress func(written, total int64)) (*FetchResult, error)
}

// Client fetches resources over HTTP with bounded redirect following.
//
// Client provides:
//   - Configured User-Agent header
//   - Manual redirect handling, so every hop is counted
//   - Optional retries of transient failures per hop
//   - Streaming downloads with progress tracking
//
// Client has no timeout of its own; bound calls with the context.
//
// Example usage:
//
//	client := NewClient(WithUserAgent("SoundCloudDownloader"))
//
//	// Fetch JSON metadata
//	res, err := client.Fetch(ctx, "https://api.soundcloud.com/tracks/123?client_id=abc")
//
//	// Download a stream with progress
//	_, err = client.FetchTo(ctx, streamURL, file, func(written, total int64) {
//	    percent := float64(written) / float64(total) * 100
//	    fmt.Printf("%.1f%%\n", percent)
//	})
type Client struct {
	rc            *retryablehttp.Client
	userAgent     string
	redirectLimit int
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent on every hop.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRedirectLimit sets how many redirect hops are followed. Negative
// values are treated as zero.
func WithRedirectLimit(n int) Option {
	return func(c *Client) { c.redirectLimit = max(n, 0) }
}

// WithRetries sets how many times a hop is retried after a connection error
// or a 429/5xx response. Zero disables retries.
func WithRetries(n int) Option {
	return func(c *Client) { c.rc.RetryMax = max(n, 0) }
}

// WithRetryWait sets the bounds of the exponential backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.rc.RetryWaitMin = minWait
		c.rc.RetryWaitMax = maxWait
	}
}

// WithLogger sets the logger for request failures and redirect hops.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient sets the underlying http.Client. The client is copied;
// its redirect policy is replaced in the copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.rc.HTTPClient = &cp
	}
}

// NewClient creates a new Client.
//
// Defaults:
//   - "SoundCloudDownloader" User-Agent header
//   - 3 redirect hops
//   - no retries
func NewClient(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		rc:            rc,
		userAgent:     "SoundCloudDownloader",
		redirectLimit: DefaultRedirectLimit,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rc.Logger = c.logger
	c.rc.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// Fetch issues a GET against rawURL and follows up to the redirect limit of
// redirect responses carrying a Location header. A chain of k redirects
// within the limit costs exactly k+1 requests.
//
// Returns a *FetchError when:
//   - any hop fails at the transport level (KindTransport)
//   - the final hop is not 2xx (KindStatus, with the result attached)
//   - the chain is longer than the limit (KindTooManyRedirects, with the
//     last redirect response attached)
//
// Example:
//
//	res, err := client.Fetch(ctx, "https://api.soundcloud.com/resolve?url=...")
//	if errors.Is(err, http.ErrTooManyRedirects) { ... }
func (c *Client) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	resp, result, err := c.follow(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Reading response body failed", "url", result.URL, "error", err)
		return nil, NewError(KindTransport, result.URL, err, result)
	}
	result.Body = body

	if !isSuccess(result.StatusCode) {
		return nil, NewError(KindStatus, result.URL, nil, result)
	}
	return result, nil
}

// FetchTo is Fetch with the final body copied to w instead of buffered.
// The body is only copied when the final hop is 2xx.
//
// onProgress, if not nil, is called with (bytesWritten, totalBytes); total
// is -1 when the server sent no Content-Length.
func (c *Client) FetchTo(ctx context.Context, rawURL string, w io.Writer, onProgress func(written, total int64)) (*FetchResult, error) {
	resp, result, err := c.follow(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(result.StatusCode) {
		result.Body, _ = io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, NewError(KindStatus, result.URL, nil, result)
	}

	if onProgress != nil {
		w = &ProgressWriter{Writer: w, Total: resp.ContentLength, OnUpdate: onProgress}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		c.logger.Error("Copying response body failed", "url", result.URL, "error", err)
		return nil, NewError(KindTransport, result.URL, err, result)
	}
	return result, nil
}

// follow walks the redirect chain and returns the final open response
// along with a result describing it (without body).
func (c *Client) follow(ctx context.Context, rawURL string) (*http.Response, *FetchResult, error) {
	current := rawURL
	for redirects := 0; ; redirects++ {
		resp, err := c.get(ctx, current)
		if err != nil {
			c.logger.Error("Request failed", "url", current, "error", err)
			return nil, nil, NewError(KindTransport, current, err, nil)
		}

		result := &FetchResult{
			URL:        current,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Location:   resp.Header.Get("Location"),
			Redirects:  redirects,
		}

		if !isRedirect(resp.StatusCode) || result.Location == "" {
			return resp, result, nil
		}

		if redirects >= c.redirectLimit {
			result.Body, _ = io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
			c.logger.Warn("Redirect limit reached", "url", current, "limit", c.redirectLimit)
			return nil, nil, NewError(KindTooManyRedirects, current,
				fmt.Errorf("stopped after %d redirects", redirects), result)
		}

		next, err := resolveLocation(current, result.Location)
		drain(resp.Body)
		if err != nil {
			c.logger.Error("Invalid redirect location", "url", current, "location", result.Location, "error", err)
			return nil, nil, NewError(KindTransport, current, err, result)
		}

		c.logger.Debug("Following redirect", "from", current, "to", next, "status", resp.StatusCode)
		current = next
	}
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.rc.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing Location %q: %w", location, err)
	}
	next := b.ResolveReference(loc)
	if next.Scheme != "http" && next.Scheme != "https" {
		return "", errors.New("redirect to unsupported scheme " + next.Scheme)
	}
	return next.String(), nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}
