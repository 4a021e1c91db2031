// Package config provides configuration management for soundcloud-downloader.
//
// This package handles:
//   - Loading settings from JSON files, layered over the defaults
//   - Saving settings back to disk
//   - Default configuration values
//   - Conversion to PathConfig and TrackConfig for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Loopback callback on http://localhost:8080/soundcloud-authentication
//	// Up to 3 redirect hops per fetch, no automatic retries
//	// Downloads to ~/Music/SoundCloud/{artist}/{set}
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Malformed file; a missing file yields the defaults
//	}
//
// Only the keys present in the file override the defaults, so a config file
// may be as small as:
//
//	{"client_id": "abc123"}
//
// # Saving Settings
//
//	settings.ClientID = "abc123"
//	err := settings.Save("/path/to/config.json")
package config
