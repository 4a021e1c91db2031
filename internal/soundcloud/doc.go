// Package soundcloud talks to the SoundCloud API: it resolves public
// soundcloud.com URLs to canonical API resources and fetches those
// resources.
//
// # Resolving URLs
//
// The Resolver calls the resolve endpoint with the public URL and the
// application's client id, and returns the canonical resource URI with the
// client id appended:
//
//	r := soundcloud.NewResolver(client, clientID)
//	uri, err := r.ResolveURL(ctx, "https://soundcloud.com/artist/track")
//	// uri = "https://api.soundcloud.com/tracks/123?client_id=<id>"
//
// # Fetching Resources
//
// API combines resolution with a fetch of the resource JSON. User URLs are
// expanded into the user's playlists:
//
//	api := soundcloud.NewAPI(client, r, logger)
//	resources, err := api.Resources(ctx, "https://soundcloud.com/artist")
//	for _, res := range resources {
//	    set, err := res.ToSet(clientID, pathConfig, trackConfig)
//	    ...
//	}
package soundcloud
