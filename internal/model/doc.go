// Package model defines the core data structures used throughout
// the soundcloud-downloader application.
//
// # Set
//
// Set represents a SoundCloud set (playlist or album) with metadata and
// computed file paths. A lone track is downloaded as a set of one:
//
//	set := model.NewSet("Artist", "Title", artworkURL, createdAt, pathConfig)
//	fmt.Println(set.Path)        // Where to save the set
//	fmt.Println(set.ArtworkPath) // Where to save cover art
//
// # Track
//
// Track represents a single track within a set:
//
//	track := model.NewTrack(set, 1, "Song Title", "Artist", 180.5, streamURL, trackConfig)
//	fmt.Println(track.Path) // Full path where track will be saved
//
// # Path Configuration
//
// PathConfig controls how set/track paths are computed using placeholders:
//
//	cfg := &model.PathConfig{
//	    DownloadsPath:          "/music/{artist}/{set}",
//	    CoverArtFileNameFormat: "{set}",
//	    PlaylistFileNameFormat: "{set}",
//	    PlaylistFormat:         model.PlaylistFormatM3U,
//	}
//
// Available placeholders: {artist}, {set}, {title}, {tracknum}, {year}, {month}, {day}
package model
