package model

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Set represents a SoundCloud set (playlist or album) with its metadata and tracks.
//
// A single track resolved on its own is wrapped in a Set of one, so the
// download pipeline only ever deals with sets.
//
// Paths are computed when creating a set via NewSet, using placeholders
// like {artist}, {set}, {year}.
//
// Example:
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "/music/{artist}/{set}",
//	    CoverArtFileNameFormat: "cover",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	}
//	set := NewSet("Artist", "Night Drive", artURL, createdAt, cfg)
//	// set.Path = "/music/Artist/Night Drive"
type Set struct {
	// Artist is the username of the set owner.
	Artist string

	// Title is the set title.
	Title string

	// ArtworkURL is the URL to download the cover art from.
	// Empty string means no artwork is available.
	ArtworkURL string

	// CreatedAt is when the set (or track) was published.
	CreatedAt time.Time

	// Tracks contains all tracks in this set.
	Tracks []*Track

	// Path is the computed local directory where set files will be saved.
	Path string

	// ArtworkPath is the computed local file path for the cover art.
	// Empty if the set has no artwork.
	ArtworkPath string

	// PlaylistPath is the computed local file path for the playlist file.
	PlaylistPath string
}

// NewSet creates a new Set with computed paths based on cfg.
//
// Invalid filename characters are replaced with underscores and paths are
// truncated if they exceed Windows path length limits (248 for folders, 260 for files).
func NewSet(artist, title, artworkURL string, createdAt time.Time, cfg *PathConfig) *Set {
	set := &Set{
		Artist:     artist,
		Title:      title,
		ArtworkURL: artworkURL,
		CreatedAt:  createdAt,
	}

	set.Path = set.parseFolderPath(cfg)
	set.PlaylistPath = set.parsePlaylistPath(cfg)
	set.ArtworkPath = set.parseArtworkPath(cfg)

	return set
}

// HasArtwork returns true if the set has cover art available for download.
func (s *Set) HasArtwork() bool {
	return s.ArtworkURL != ""
}

// PathConfig holds path formatting settings for sets and tracks.
//
// All path fields support placeholders:
//   - {artist} - Set owner
//   - {set} - Set title
//   - {year}, {month}, {day} - Publication date components
type PathConfig struct {
	// DownloadsPath is the base path template for saving sets.
	// Example: "/music/{artist}/{set}"
	DownloadsPath string

	// CoverArtFileNameFormat is the filename template for cover art (without extension).
	CoverArtFileNameFormat string

	// PlaylistFileNameFormat is the filename template for playlists (without extension).
	PlaylistFileNameFormat string

	// PlaylistFormat determines the playlist file type and extension.
	PlaylistFormat PlaylistFormat
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune Media Player).
	PlaylistFormatZPL
)

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatM3U:
		return ".m3u"
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

func (s *Set) replacePlaceholders(template string, sanitize bool) string {
	clean := func(v string) string {
		if sanitize {
			return sanitizeFileName(v)
		}
		return v
	}
	out := template
	out = strings.ReplaceAll(out, "{year}", clean(s.CreatedAt.Format("2006")))
	out = strings.ReplaceAll(out, "{month}", clean(s.CreatedAt.Format("01")))
	out = strings.ReplaceAll(out, "{day}", clean(s.CreatedAt.Format("02")))
	out = strings.ReplaceAll(out, "{artist}", clean(s.Artist))
	out = strings.ReplaceAll(out, "{set}", clean(s.Title))
	return out
}

// parseFolderPath computes the set folder path from the config template.
func (s *Set) parseFolderPath(cfg *PathConfig) string {
	path := s.replacePlaceholders(cfg.DownloadsPath, true)

	// Limit path length for cross-platform compatibility (Windows MAX_PATH)
	if len(path) >= 248 {
		path = path[:247]
	}

	return path
}

// parsePlaylistPath computes the full playlist file path.
func (s *Set) parsePlaylistPath(cfg *PathConfig) string {
	fileName := sanitizeFileName(s.replacePlaceholders(cfg.PlaylistFileNameFormat, false))
	return limitFilePath(s.Path, fileName, cfg.PlaylistFormat.Extension())
}

// parseArtworkPath computes the full cover art file path.
// Artwork is always stored as JPEG.
func (s *Set) parseArtworkPath(cfg *PathConfig) string {
	if !s.HasArtwork() {
		return ""
	}
	fileName := sanitizeFileName(s.replacePlaceholders(cfg.CoverArtFileNameFormat, false))
	return limitFilePath(s.Path, fileName, ".jpg")
}

// limitFilePath joins dir and fileName+ext, shortening fileName when the
// total would exceed the Windows MAX_PATH of 260.
func limitFilePath(dir, fileName, ext string) string {
	filePath := filepath.Join(dir, fileName+ext)
	if len(filePath) >= 260 {
		maxLen := 259 - len(dir) - 1 - len(ext)
		if maxLen > 0 && maxLen < len(fileName) {
			filePath = filepath.Join(dir, fileName[:maxLen]+ext)
		}
	}
	return filePath
}

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}
