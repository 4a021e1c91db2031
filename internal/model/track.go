package model

import (
	"fmt"
	"strings"
)

// Track represents a single SoundCloud track within a set.
//
// The file path is computed when creating a track via NewTrack, using the
// set's path and the TrackConfig file name format.
//
// Example:
//
//	cfg := &TrackConfig{FileNameFormat: "{tracknum} {title}.mp3"}
//	track := NewTrack(set, 1, "Song Title", "Artist", 180.5, streamURL, cfg)
//	// track.Path = "/music/Artist/Set/01 Song Title.mp3"
type Track struct {
	// Set is a reference to the parent set.
	Set *Set

	// Number is the 1-indexed position within the set.
	Number int

	// Title is the track title.
	Title string

	// Artist is the username of the track uploader, which may differ
	// from the set owner for reposted tracks.
	Artist string

	// Genre is the free-form genre string from SoundCloud.
	Genre string

	// Duration is the track length in seconds.
	Duration float64

	// StreamURL is the URL the MP3 stream is fetched from, already carrying
	// the client_id query parameter. It usually answers with a redirect.
	StreamURL string

	// PermalinkURL is the public page of the track.
	PermalinkURL string

	// Path is the computed local file path where the track will be saved.
	Path string
}

// TrackConfig holds track path formatting settings.
//
// FileNameFormat supports {tracknum}, {title}, {artist}, {set},
// {year}, {month} and {day}.
type TrackConfig struct {
	// FileNameFormat is the template for track filenames.
	// Must include the file extension (typically ".mp3").
	FileNameFormat string
}

// NewTrack creates a new Track with computed path.
func NewTrack(set *Set, number int, title, artist string, duration float64, streamURL string, cfg *TrackConfig) *Track {
	track := &Track{
		Set:       set,
		Number:    number,
		Title:     title,
		Artist:    artist,
		Duration:  duration,
		StreamURL: streamURL,
	}

	track.Path = track.parseFilePath(cfg)

	return track
}

// FileName returns the base name of the track file.
func (t *Track) FileName() string {
	return t.Path[strings.LastIndexAny(t.Path, `/\`)+1:]
}

// parseFilePath computes the full file path for this track.
func (t *Track) parseFilePath(cfg *TrackConfig) string {
	fileName := t.parseFileName(cfg)
	ext := ""
	if i := strings.LastIndex(fileName, "."); i > 0 {
		fileName, ext = fileName[:i], fileName[i:]
	}
	return limitFilePath(t.Set.Path, fileName, ext)
}

// parseFileName computes the filename from the config template.
func (t *Track) parseFileName(cfg *TrackConfig) string {
	artist := t.Artist
	if artist == "" {
		artist = t.Set.Artist
	}
	fileName := strings.ReplaceAll(cfg.FileNameFormat, "{artist}", artist)
	fileName = t.Set.replacePlaceholders(fileName, false)
	fileName = strings.ReplaceAll(fileName, "{title}", t.Title)
	fileName = strings.ReplaceAll(fileName, "{tracknum}", fmt.Sprintf("%02d", t.Number))
	return sanitizeFileName(fileName)
}
