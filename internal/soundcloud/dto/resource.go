package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// Resource kinds returned by the SoundCloud API.
const (
	KindTrack    = "track"
	KindPlaylist = "playlist"
	KindUser     = "user"
)

// ErrUnsupportedKind is returned by ToSet for resources that are neither
// tracks nor playlists.
var ErrUnsupportedKind = errors.New("unsupported resource kind")

// Generic is the minimal shape every API resource shares.
type Generic struct {
	Kind string `json:"kind"`
	URI  string `json:"uri"`
}

// User is the owner of a track or playlist.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	URI       string `json:"uri"`
	AvatarURL string `json:"avatar_url"`
}

// Resource is a track or playlist as returned by the resolve endpoint and
// by /tracks/{id} and /playlists/{id}.
type Resource struct {
	Kind         string     `json:"kind"`
	ID           int64      `json:"id"`
	URI          string     `json:"uri"`
	Title        string     `json:"title"`
	User         User       `json:"user"`
	Duration     int64      `json:"duration"` // milliseconds
	Genre        string     `json:"genre"`
	ArtworkURL   string     `json:"artwork_url"`
	StreamURL    string     `json:"stream_url"`
	Streamable   *bool      `json:"streamable"`
	PermalinkURL string     `json:"permalink_url"`
	CreatedAt    Time       `json:"created_at"`
	TrackCount   int        `json:"track_count"`
	Tracks       []Resource `json:"tracks"`
}

// IsStreamable reports whether the track can be downloaded through its
// stream URL. A missing streamable field counts as streamable.
func (r *Resource) IsStreamable() bool {
	if r.StreamURL == "" {
		return false
	}
	return r.Streamable == nil || *r.Streamable
}

// Seconds returns the duration in seconds.
func (r *Resource) Seconds() float64 {
	return float64(r.Duration) / 1000
}

// ArtworkURLLarge returns the 500x500 variant of the artwork URL.
// SoundCloud serves 100x100 "-large" images by default.
func (r *Resource) ArtworkURLLarge() string {
	return strings.Replace(r.ArtworkURL, "-large.", "-t500x500.", 1)
}

// ToSet converts a track or playlist into a model.Set. A track becomes a
// set of one, owned by the track's uploader. Playlist tracks that cannot
// be streamed are skipped but keep their position number.
//
// Playlists without artwork take the artwork of their first track.
func (r *Resource) ToSet(clientID string, pathCfg *model.PathConfig, trackCfg *model.TrackConfig) (*model.Set, error) {
	switch r.Kind {
	case KindTrack:
		set := model.NewSet(r.User.Username, r.Title, r.ArtworkURLLarge(), r.CreatedAt.Time, pathCfg)
		if r.IsStreamable() {
			set.Tracks = append(set.Tracks, r.toTrack(set, 1, clientID, trackCfg))
		}
		return set, nil

	case KindPlaylist:
		artwork := r.ArtworkURLLarge()
		if artwork == "" && len(r.Tracks) > 0 {
			artwork = r.Tracks[0].ArtworkURLLarge()
		}
		set := model.NewSet(r.User.Username, r.Title, artwork, r.CreatedAt.Time, pathCfg)
		for i := range r.Tracks {
			t := &r.Tracks[i]
			if !t.IsStreamable() {
				continue
			}
			set.Tracks = append(set.Tracks, t.toTrack(set, i+1, clientID, trackCfg))
		}
		return set, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, r.Kind)
	}
}

func (r *Resource) toTrack(set *model.Set, number int, clientID string, cfg *model.TrackConfig) *model.Track {
	track := model.NewTrack(set, number, r.Title, r.User.Username, r.Seconds(), WithClientID(r.StreamURL, clientID), cfg)
	track.Genre = r.Genre
	track.PermalinkURL = r.PermalinkURL
	return track
}

// WithClientID appends the client_id query parameter to uri, using "&"
// when uri already carries a query.
func WithClientID(uri, clientID string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "client_id=" + clientID
}

// Time decodes the timestamps of both API generations:
// "2013/03/23 14:58:27 +0000" and RFC 3339.
type Time struct {
	time.Time
}

const legacyLayout = "2006/01/02 15:04:05 -0700"

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{legacyLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(legacyLayout) + `"`), nil
}
