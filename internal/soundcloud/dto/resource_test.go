package dto

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

var (
	pathCfg = &model.PathConfig{
		DownloadsPath:          "/music/{artist}/{set}",
		CoverArtFileNameFormat: "{set}",
		PlaylistFileNameFormat: "{set}",
	}
	trackCfg = &model.TrackConfig{FileNameFormat: "{tracknum} {artist} - {title}.mp3"}
)

const playlistJSON = `{
  "kind": "playlist",
  "id": 9,
  "title": "Night Drive",
  "created_at": "2013/03/23 14:58:27 +0000",
  "artwork_url": null,
  "user": {"username": "owner"},
  "tracks": [
    {
      "kind": "track", "id": 1, "title": "First", "duration": 61000,
      "genre": "Ambient",
      "user": {"username": "guest"},
      "artwork_url": "https://i1.sndcdn.com/artworks-1-large.jpg",
      "stream_url": "https://api.soundcloud.com/tracks/1/stream",
      "permalink_url": "https://soundcloud.com/guest/first"
    },
    {
      "kind": "track", "id": 2, "title": "Blocked", "streamable": false,
      "user": {"username": "owner"},
      "stream_url": "https://api.soundcloud.com/tracks/2/stream"
    },
    {
      "kind": "track", "id": 3, "title": "Third",
      "user": {"username": "owner"},
      "stream_url": "https://api.soundcloud.com/tracks/3/stream"
    }
  ]
}`

func TestResource_PlaylistToSet(t *testing.T) {
	var res Resource
	require.NoError(t, json.Unmarshal([]byte(playlistJSON), &res))

	set, err := res.ToSet("cid", pathCfg, trackCfg)
	require.NoError(t, err)

	assert.Equal(t, "owner", set.Artist)
	assert.Equal(t, "Night Drive", set.Title)
	assert.Equal(t, "/music/owner/Night Drive", set.Path)
	assert.True(t, set.CreatedAt.Equal(time.Date(2013, 3, 23, 14, 58, 27, 0, time.UTC)))
	assert.Equal(t, "https://i1.sndcdn.com/artworks-1-t500x500.jpg", set.ArtworkURL)

	require.Len(t, set.Tracks, 2)
	first := set.Tracks[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "guest", first.Artist)
	assert.Equal(t, "Ambient", first.Genre)
	assert.InDelta(t, 61.0, first.Duration, 1e-9)
	assert.Equal(t, "https://api.soundcloud.com/tracks/1/stream?client_id=cid", first.StreamURL)
	assert.Equal(t, "https://soundcloud.com/guest/first", first.PermalinkURL)
	assert.Equal(t, "/music/owner/Night Drive/01 guest - First.mp3", first.Path)

	assert.Equal(t, 3, set.Tracks[1].Number)
	assert.Same(t, set, set.Tracks[1].Set)
}

func TestResource_TrackToSet(t *testing.T) {
	res := Resource{
		Kind:      KindTrack,
		Title:     "Solo",
		User:      User{Username: "artist"},
		StreamURL: "https://api.soundcloud.com/tracks/5/stream",
		CreatedAt: Time{time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	set, err := res.ToSet("cid", pathCfg, trackCfg)
	require.NoError(t, err)
	assert.Equal(t, "Solo", set.Title)
	require.Len(t, set.Tracks, 1)
	assert.Equal(t, 1, set.Tracks[0].Number)
	assert.False(t, set.HasArtwork())
}

func TestResource_UnsupportedKind(t *testing.T) {
	res := Resource{Kind: KindUser}

	_, err := res.ToSet("cid", pathCfg, trackCfg)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestWithClientID(t *testing.T) {
	assert.Equal(t, "http://a/b?client_id=x", WithClientID("http://a/b", "x"))
	assert.Equal(t, "http://a/b?s=1&client_id=x", WithClientID("http://a/b?s=1", "x"))
}

func TestTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{`"2013/03/23 14:58:27 +0000"`, time.Date(2013, 3, 23, 14, 58, 27, 0, time.UTC), false},
		{`"2021-06-01T10:00:00Z"`, time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC), false},
		{`null`, time.Time{}, false},
		{`"yesterday"`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Time
			err := got.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v, want %v", got.Time, tt.want)
		})
	}
}
