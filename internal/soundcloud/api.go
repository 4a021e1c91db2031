package soundcloud

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/handiism/soundcloud-downloader/internal/convert"
	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// API fetches track and playlist resources behind public SoundCloud URLs.
type API struct {
	fetcher  http.Fetcher
	resolver *Resolver
	logger   *slog.Logger
}

// NewAPI creates an API that resolves with r and fetches resources with f.
func NewAPI(f http.Fetcher, r *Resolver, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{fetcher: f, resolver: r, logger: logger}
}

// ClientID returns the client identifier used for API requests.
func (a *API) ClientID() string {
	return a.resolver.ClientID()
}

// Resource resolves publicURL and fetches the resource it points to.
//
// Example:
//
//	res, err := api.Resource(ctx, "https://soundcloud.com/artist/sets/night-drive")
//	fmt.Println(res.Kind, len(res.Tracks)) // playlist 12
func (a *API) Resource(ctx context.Context, publicURL string) (*dto.Resource, error) {
	uri, err := a.resolver.ResolveURL(ctx, publicURL)
	if err != nil {
		return nil, err
	}
	return convert.Object[dto.Resource](ctx, a.fetcher, uri)
}

// Resources returns the downloadable resources behind publicURL: the
// resource itself for tracks and playlists, or every playlist of a user.
func (a *API) Resources(ctx context.Context, publicURL string) ([]*dto.Resource, error) {
	res, err := a.Resource(ctx, publicURL)
	if err != nil {
		return nil, err
	}
	if res.Kind != dto.KindUser {
		return []*dto.Resource{res}, nil
	}

	a.logger.Info("Expanding user playlists", "user", res.User.Username, "uri", res.URI)
	playlists, err := convert.Object[[]*dto.Resource](ctx, a.fetcher, dto.WithClientID(res.URI+"/playlists", a.ClientID()))
	if err != nil {
		return nil, fmt.Errorf("fetching playlists of %s: %w", publicURL, err)
	}
	if len(*playlists) == 0 {
		return nil, fmt.Errorf("%w: %s has no playlists", ErrNotResolved, publicURL)
	}
	return *playlists, nil
}
