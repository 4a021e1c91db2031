// Package http provides the redirect-following fetcher every network
// component of soundcloud-downloader is built on.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Redirect chains, bounded by a hop limit (3 by default)
//   - Optional per-hop retries through go-retryablehttp
//   - Streaming downloads with progress tracking
//
// Failures are returned as *FetchError values whose Kind tells transport
// errors, bad statuses, redirect loops, decode and file errors apart.
//
// # Basic Usage
//
//	client := http.NewClient(http.WithRedirectLimit(3))
//
//	// Fetch a JSON document
//	res, err := client.Fetch(ctx, resolveURL)
//	fmt.Println(res.StatusCode, res.Text())
//
//	// Stream an MP3 to disk with progress callback
//	client.FetchTo(ctx, streamURL, file, func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
