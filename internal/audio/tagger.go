package audio

import (
	"io"
	"os"
	"strconv"

	"github.com/bogem/id3v2"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from SoundCloud.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // Uploader of the track
//	    Album:       TagModify,      // Set title
//	    TrackTitle:  TagModify,
//	    Genre:       TagModify,
//	    Comments:    TagEmpty,       // Clear any existing comments
//	    AlbumArtist: TagDoNotModify, // Keep existing album artist
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// Year controls the TYER (Year) frame.
	Year TagEditAction

	// Date controls the TDRC (Recording time) frame (ID3v2.4).
	Date TagEditAction

	// TrackNumber controls the TRCK (Track number) frame.
	TrackNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Genre controls the TCON (Content type) frame.
	Genre TagEditAction

	// SourceURL controls the WOAS (Official audio source webpage) frame,
	// set to the track permalink.
	SourceURL TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration.
//
// Every field is set to TagModify except comments, which are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Year:        TagModify,
		Date:        TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
		Genre:       TagModify,
		SourceURL:   TagModify,
		Comments:    TagEmpty,
	}
}

// Tagger writes ID3 tags to MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//
//	// After downloading track
//	if err := tagger.SaveTags(track, artworkBytes); err != nil {
//	    logger.Warn("Failed to tag track", "path", track.Path, "error", err)
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags to the track's MP3 file, using track.Set for
// set-level frames. artwork, when not nil, is embedded as the front cover
// and must be JPEG.
func (t *Tagger) SaveTags(track *model.Track, artwork []byte) error {
	tag, err := openTag(track.Path)
	if err != nil {
		return err
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateTextFrames(tag, track)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

// id3HeaderSize is the fixed size of an ID3v2 tag header.
const id3HeaderSize = 10

// openTag parses the tag of the file at path. A file shorter than a tag
// header cannot carry a tag and is opened as untagged.
func openTag(path string) (*id3v2.Tag, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() < id3HeaderSize {
		// at EOF the parser sees no tag and keeps the whole file as audio
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return nil, err
		}
	}

	tag, err := id3v2.ParseReader(file, id3v2.Options{Parse: true})
	if err != nil {
		file.Close()
		return nil, err
	}
	return tag, nil
}

func apply(action TagEditAction, clear func(), set func()) {
	switch action {
	case TagEmpty:
		clear()
	case TagModify:
		set()
	}
}

// updateTextFrames updates text-based ID3 frames based on configuration.
func (t *Tagger) updateTextFrames(tag *id3v2.Tag, track *model.Track) {
	set := track.Set
	artist := trackArtist(set, track)
	text := func(id, value string) func() {
		return func() {
			tag.DeleteFrames(id)
			if value != "" {
				tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
			}
		}
	}
	del := func(id string) func() {
		return func() { tag.DeleteFrames(id) }
	}

	apply(t.config.Artist, func() { tag.SetArtist("") }, func() { tag.SetArtist(artist) })
	apply(t.config.AlbumArtist, del("TPE2"), text("TPE2", set.Artist))
	apply(t.config.Album, func() { tag.SetAlbum("") }, func() { tag.SetAlbum(set.Title) })
	apply(t.config.TrackTitle, func() { tag.SetTitle("") }, func() { tag.SetTitle(track.Title) })
	apply(t.config.TrackNumber, del("TRCK"), text("TRCK", strconv.Itoa(track.Number)))
	apply(t.config.Genre, func() { tag.SetGenre("") }, func() { tag.SetGenre(track.Genre) })

	if !set.CreatedAt.IsZero() {
		apply(t.config.Year, del("TYER"), text("TYER", set.CreatedAt.Format("2006")))
		apply(t.config.Date, del("TDRC"), text("TDRC", set.CreatedAt.Format("2006-01-02")))
	}

	// WOAS is a URL frame; id3v2 has no typed setter, so it is written as
	// a raw frame body: the URL in ISO-8859-1.
	apply(t.config.SourceURL, del("WOAS"), func() {
		tag.DeleteFrames("WOAS")
		if track.PermalinkURL != "" {
			tag.AddFrame("WOAS", id3v2.UnknownFrame{Body: []byte(track.PermalinkURL)})
		}
	})

	apply(t.config.Comments, del(tag.CommonID("Comments")), func() {})
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
