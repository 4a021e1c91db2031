package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/handiism/soundcloud-downloader/internal/convert"
	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// DefaultResolveEndpoint is the SoundCloud resolve endpoint.
const DefaultResolveEndpoint = "https://api.soundcloud.com/resolve"

// ErrNotResolved is returned when the resolve endpoint answered but gave
// no canonical URI.
var ErrNotResolved = errors.New("url did not resolve to a resource")

// Resolver turns public SoundCloud URLs into canonical API resource URLs.
//
// Every call goes to the network; results are not cached.
//
// Example usage:
//
//	r := NewResolver(client, "my-client-id")
//	uri, err := r.ResolveURL(ctx, "https://soundcloud.com/artist/track")
//	// uri = "https://api.soundcloud.com/tracks/123?client_id=my-client-id"
type Resolver struct {
	fetcher  http.Fetcher
	clientID string
	endpoint string
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEndpoint overrides the resolve endpoint.
func WithEndpoint(endpoint string) ResolverOption {
	return func(r *Resolver) { r.endpoint = endpoint }
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver that fetches through f and identifies as
// clientID.
func NewResolver(f http.Fetcher, clientID string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:  f,
		clientID: clientID,
		endpoint: DefaultResolveEndpoint,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ClientID returns the client identifier appended to resolved URLs.
func (r *Resolver) ClientID() string {
	return r.clientID
}

// ResolveURL asks the resolve endpoint for the canonical URI of publicURL
// and returns it with the client_id query parameter appended.
//
// On any failure the returned string is empty and the error is one of:
//   - a *http.FetchError from the fetch or JSON decoding
//   - ErrNotResolved when the response carried no uri
func (r *Resolver) ResolveURL(ctx context.Context, publicURL string) (string, error) {
	generic, err := convert.Object[dto.Generic](ctx, r.fetcher, r.requestURL(publicURL))
	if err != nil {
		r.logger.Warn("Resolve failed", "url", publicURL, "error", err)
		return "", err
	}
	if generic.URI == "" {
		return "", fmt.Errorf("%w: %s", ErrNotResolved, publicURL)
	}

	resolved := dto.WithClientID(generic.URI, r.clientID)
	r.logger.Debug("Resolved URL", "url", publicURL, "uri", generic.URI)
	return resolved, nil
}

func (r *Resolver) requestURL(publicURL string) string {
	return r.endpoint + "?url=" + url.QueryEscape(publicURL) + "&client_id=" + url.QueryEscape(r.clientID)
}
