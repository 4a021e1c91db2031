package audio

import (
	"strings"
	"testing"
	"time"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

func createTestSet() *model.Set {
	pathCfg := &model.PathConfig{
		DownloadsPath:          "/music/{artist}/{set}",
		CoverArtFileNameFormat: "{set}",
		PlaylistFileNameFormat: "{set}",
	}
	trackCfg := &model.TrackConfig{
		FileNameFormat: "{title}.mp3",
	}

	set := model.NewSet("Test Artist", "Test Set", "", time.Now(), pathCfg)

	track1 := model.NewTrack(set, 1, "track1", "Guest", 180, "http://example.com/1", trackCfg)
	track2 := model.NewTrack(set, 2, "track2", "", 200.7, "http://example.com/2", trackCfg)

	set.Tracks = []*model.Track{track1, track2}

	return set
}

func TestPlaylistCreator_M3U(t *testing.T) {
	content := NewPlaylistCreator(model.PlaylistFormatM3U, false).CreatePlaylist(createTestSet())

	want := "track1.mp3\ntrack2.mp3\n"
	if content != want {
		t.Errorf("M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	content := NewPlaylistCreator(model.PlaylistFormatM3U, true).CreatePlaylist(createTestSet())

	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:180,Guest - track1\n") {
		t.Errorf("Extended M3U should credit the track uploader, got:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:200,Test Artist - track2\n") {
		t.Errorf("Extended M3U should fall back to the set owner, got:\n%s", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	content := NewPlaylistCreator(model.PlaylistFormatPLS, false).CreatePlaylist(createTestSet())

	for _, want := range []string{"[playlist]\n", "File1=track1.mp3\n", "Length2=200\n", "NumberOfEntries=2\n", "Version=2\n"} {
		if !strings.Contains(content, want) {
			t.Errorf("PLS should contain %q, got:\n%s", want, content)
		}
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	content := NewPlaylistCreator(model.PlaylistFormatWPL, false).CreatePlaylist(createTestSet())

	if !strings.HasPrefix(content, "<?wpl") {
		t.Error("WPL should start with its XML declaration")
	}
	if !strings.Contains(content, `<media src="track1.mp3"/>`) {
		t.Errorf("WPL should contain media elements, got:\n%s", content)
	}
	if strings.Contains(content, "albumTitle=") {
		t.Error("WPL should not carry ZPL metadata")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	content := NewPlaylistCreator(model.PlaylistFormatZPL, false).CreatePlaylist(createTestSet())

	if !strings.HasPrefix(content, "<?zpl") {
		t.Error("ZPL should start with its XML declaration")
	}
	if !strings.Contains(content, `albumTitle="Test Set"`) {
		t.Error("ZPL should contain albumTitle attribute")
	}
	if !strings.Contains(content, `duration="200700"`) {
		t.Errorf("ZPL should carry durations in milliseconds, got:\n%s", content)
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	pathCfg := &model.PathConfig{
		DownloadsPath:          "/music",
		CoverArtFileNameFormat: "{set}",
		PlaylistFileNameFormat: "{set}",
	}
	trackCfg := &model.TrackConfig{
		FileNameFormat: "{title}.mp3",
	}

	set := model.NewSet("Artist & Co", "Set <Special>", "", time.Now(), pathCfg)
	set.Tracks = append(set.Tracks, model.NewTrack(set, 1, "Track & 'Quote'", "", 180, "http://example.com", trackCfg))

	content := NewPlaylistCreator(model.PlaylistFormatZPL, false).CreatePlaylist(set)

	if !strings.Contains(content, "Artist &amp; Co") {
		t.Error("ZPL should escape & as &amp;")
	}
	if strings.Contains(content, "<Special>") {
		t.Error("ZPL should escape < and >")
	}
}
