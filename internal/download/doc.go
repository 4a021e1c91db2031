// Package download provides the download orchestration logic for
// fetching SoundCloud tracks and sets.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Parse input URLs
//  2. Resolve them and fetch track/set metadata from the SoundCloud API
//  3. Download cover art
//  4. Download tracks concurrently, following stream redirects
//  5. Tag MP3 files with ID3 metadata
//  6. Generate playlists (optional)
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	err := manager.Initialize(ctx, "https://soundcloud.com/artist/sets/name")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.StartDownloads(ctx)
//
// # Concurrency
//
// The Manager uses configurable concurrency limits:
//   - MaxConcurrentSetsDownload: How many sets to download in parallel
//   - MaxConcurrentTracksDownload: How many tracks per set to download in parallel
//
// # Retry Logic
//
// Failed downloads are retried with exponential backoff, configurable via
// settings.DownloadMaxRetries, DownloadRetryCooldown and
// DownloadRetryExponent. Client errors such as 404 are not retried.
package download
