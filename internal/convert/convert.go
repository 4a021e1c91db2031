// Package convert turns fetch results into typed values: decoded JSON
// objects, files on disk, audio clips and images.
//
// Every converter runs a single fetch through an http.Fetcher and applies
// one post-processing step. A failed fetch or conversion is always reported
// as a non-nil *http.FetchError; no converter returns a zero value with a
// nil error.
package convert

import (
	"bytes"
	"context"
	"image"
	nethttp "net/http"
	"os"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/goccy/go-json"

	"github.com/handiism/soundcloud-downloader/internal/http"
	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
)

// Object fetches url and decodes the JSON body into a new T.
//
// Example:
//
//	track, err := convert.Object[soundcloud.Resource](ctx, client, trackURL)
func Object[T any](ctx context.Context, f http.Fetcher, url string) (*T, error) {
	res, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(res.Body, &v); err != nil {
		return nil, http.NewError(http.KindDecode, res.URL, err, res)
	}
	return &v, nil
}

// File fetches url and writes the body to filename under root. The name is
// sanitized into a single path element; names that cannot be confined to
// root are rejected before any request is made. Returns the written path.
//
// Example:
//
//	path, err := convert.File(ctx, client, artworkURL, workDir, "cover.jpg")
func File(ctx context.Context, f http.Fetcher, url, root, filename string) (string, error) {
	path, err := ioutils.ConfinePath(root, filename)
	if err != nil {
		return "", http.NewError(http.KindFile, url, err, nil)
	}

	res, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := ioutils.WriteFile(path, res.Body); err != nil {
		return "", http.NewError(http.KindFile, res.URL, err, res)
	}
	return path, nil
}

// Download streams url into the file at path, following redirects, and
// reports progress through onProgress (may be nil). A partially written
// file is removed on failure.
func Download(ctx context.Context, s http.Streamer, url, path string, onProgress func(written, total int64)) (*http.FetchResult, error) {
	file, err := ioutils.CreateFile(path)
	if err != nil {
		return nil, http.NewError(http.KindFile, url, err, nil)
	}

	res, err := s.FetchTo(ctx, url, file, onProgress)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = http.NewError(http.KindFile, url, closeErr, res)
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return res, nil
}

// AudioClip is a fetched audio payload with the metadata that could be read
// from it.
type AudioClip struct {
	Data        []byte
	ContentType string

	// Title, Artist and Album come from the ID3v2 tag, when present.
	Title  string
	Artist string
	Album  string
}

// Audio fetches url and returns the payload as an audio clip. The content
// type comes from the response header, or is sniffed when the header is
// missing or generic. Payloads that are not audio are rejected.
func Audio(ctx context.Context, f http.Fetcher, url string) (*AudioClip, error) {
	res, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	ct := mediaType(res.ContentType())
	if ct == "" || ct == "application/octet-stream" {
		ct = sniffAudio(res.Body)
	}
	if !strings.HasPrefix(ct, "audio/") {
		return nil, http.NewError(http.KindDecode, res.URL, errNotAudio(ct), res)
	}

	clip := &AudioClip{Data: res.Body, ContentType: ct}
	if tag, err := id3v2.ParseReader(bytes.NewReader(res.Body), id3v2.Options{Parse: true}); err == nil {
		clip.Title = tag.Title()
		clip.Artist = tag.Artist()
		clip.Album = tag.Album()
	}
	return clip, nil
}

// Texture is a fetched and decoded image.
type Texture struct {
	Image image.Image

	// Format is the decoder name, e.g. "jpeg" or "png".
	Format string

	// Data is the raw fetched payload.
	Data []byte
}

// FetchTexture fetches url and decodes the payload as an image using svc
// (a default ImageService when nil).
func FetchTexture(ctx context.Context, f http.Fetcher, url string, svc *ioutils.ImageService) (*Texture, error) {
	if svc == nil {
		svc = ioutils.NewImageService()
	}

	res, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	img, format, err := svc.Decode(res.Body)
	if err != nil {
		return nil, http.NewError(http.KindDecode, res.URL, err, res)
	}
	return &Texture{Image: img, Format: format, Data: res.Body}, nil
}

type errNotAudio string

func (e errNotAudio) Error() string {
	if e == "" {
		return "payload is not audio"
	}
	return "payload is not audio: " + string(e)
}

func mediaType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// sniffAudio recognises MP3 with or without an ID3 header and falls back
// to net/http sniffing.
func sniffAudio(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("ID3")):
		return "audio/mpeg"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	}
	return mediaType(nethttp.DetectContentType(data))
}
