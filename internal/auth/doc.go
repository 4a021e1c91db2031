// Package auth implements the OAuth loopback redirect flow used to connect
// the downloader to a SoundCloud account.
//
// Authenticate binds http://localhost:<port>/<path>, opens the SoundCloud
// consent page in the browser and waits for SoundCloud to redirect back
// with an authorization code:
//
//	a := auth.New(auth.Config{
//	    ClientID:     clientID,
//	    Port:         8080,
//	    CallbackPath: "soundcloud-authentication",
//	    Timeout:      5 * time.Minute,
//	})
//	grant, err := a.Authenticate(ctx)
//
// The returned Grant carries the code and the redirect URI it was issued
// for. Exchanging it for a token and storing the token are left to the
// caller.
package auth
