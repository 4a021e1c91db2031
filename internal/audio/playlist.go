package audio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// PlaylistCreator generates playlist files in various formats.
//
// PlaylistCreator takes a set and generates a playlist containing
// all of its downloaded tracks. Track entries are bare file names, so
// the playlist must be saved in the set folder.
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(set)
//	ioutils.WriteFile(set.PlaylistPath, []byte(content))
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 Artist - Song Title.mp3
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator. extended only
// applies to M3U.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for a set.
func (p *PlaylistCreator) CreatePlaylist(set *model.Set) string {
	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(set)
	case model.PlaylistFormatWPL:
		return p.createSMIL(set, `<?wpl version="1.0"?>`, false)
	case model.PlaylistFormatZPL:
		return p.createSMIL(set, `<?zpl version="2.0"?>`, true)
	default:
		return p.createM3U(set)
	}
}

func trackArtist(set *model.Set, track *model.Track) string {
	if track.Artist != "" {
		return track.Artist
	}
	return set.Artist
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:180,Artist - Title
//	filename1.mp3
func (p *PlaylistCreator) createM3U(set *model.Set) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, track := range set.Tracks {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(track.Duration), trackArtist(set, track), track.Title)
		}
		sb.WriteString(track.FileName() + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=filename1.mp3
//	Title1=Artist - Song Title
//	Length1=180
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(set *model.Set) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")
	for i, track := range set.Tracks {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, track.FileName())
		fmt.Fprintf(&sb, "Title%d=%s - %s\n", idx, trackArtist(set, track), track.Title)
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, int(track.Duration))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(set.Tracks))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createSMIL generates the XML playlists of Windows Media Player (WPL) and
// Zune (ZPL). ZPL media entries carry extra metadata attributes.
func (p *PlaylistCreator) createSMIL(set *model.Set, declaration string, zune bool) string {
	var sb strings.Builder

	sb.WriteString(declaration + "\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(set.Title))
	if zune {
		sb.WriteString("    <meta name=\"Generator\" content=\"SoundCloudDownloader\"/>\n")
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(set.Tracks))
	}
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, track := range set.Tracks {
		if !zune {
			fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(track.FileName()))
			continue
		}
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(track.FileName()),
			escapeXML(set.Title),
			escapeXML(set.Artist),
			escapeXML(track.Title),
			escapeXML(trackArtist(set, track)),
			int64(math.Round(track.Duration*1000)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
