package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	nethttp "net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/soundcloud-downloader/internal/audio"
	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/convert"
	"github.com/handiism/soundcloud-downloader/internal/http"
	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

var (
	// ErrNoClientID is returned by Initialize when no client id is configured.
	ErrNoClientID = config.ErrNoClientID

	// ErrNothingFound is returned by Initialize when none of the input URLs
	// produced a downloadable set.
	ErrNothingFound = errors.New("no tracks or sets found")
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Manager coordinates set downloads.
type Manager struct {
	settings     *config.Settings
	client       *http.Client
	api          *soundcloud.API
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	logger       *slog.Logger

	sets            []*model.Set
	totalBytes      atomic.Int64
	receivedBytes   atomic.Int64
	totalFiles      int32
	downloadedFiles atomic.Int32

	onProgress func(ProgressEvent)
	mu         sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger. The HTTP client and resolver built by
// NewManager log through it too.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Manager {
	m := &Manager{
		settings:     settings,
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.client = http.NewClient(
		http.WithUserAgent(settings.UserAgent),
		http.WithRedirectLimit(settings.RedirectLimit),
		http.WithRetries(settings.FetchMaxRetries),
		http.WithLogger(m.logger),
	)
	resolver := soundcloud.NewResolver(m.client, settings.ClientID,
		soundcloud.WithEndpoint(settings.ResolveURL),
		soundcloud.WithLogger(m.logger),
	)
	m.api = soundcloud.NewAPI(m.client, resolver, m.logger)

	tagCfg := audio.DefaultTagConfig()
	tagCfg.ModifyTags = settings.ModifyTags
	m.tagger = audio.NewTagger(tagCfg)

	pathCfg := settings.ToPathConfig()
	m.playlist = audio.NewPlaylistCreator(pathCfg.PlaylistFormat, settings.M3UExtended)
	return m
}

// Initialize resolves the input URLs, one per line, and fetches the
// tracks and sets behind them. URLs that fail are reported as progress
// errors and skipped.
func (m *Manager) Initialize(ctx context.Context, inputURLs string) error {
	if m.settings.ClientID == "" {
		return ErrNoClientID
	}

	pathCfg := m.settings.ToPathConfig()
	trackCfg := m.settings.ToTrackConfig()

	var sets []*model.Set
	for _, inputURL := range m.parseInputURLs(inputURLs) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Resolving %s", inputURL), Level: LevelVerbose})

		resources, err := m.api.Resources(ctx, inputURL)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", inputURL, err), Level: LevelError})
			continue
		}

		for _, res := range resources {
			set, err := res.ToSet(m.settings.ClientID, pathCfg, trackCfg)
			if err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", inputURL, err), Level: LevelWarning})
				continue
			}
			if len(set.Tracks) == 0 {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s - %s: nothing streamable", set.Artist, set.Title), Level: LevelWarning})
				continue
			}
			sets = append(sets, set)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Found set: %s - %s (%d tracks)", set.Artist, set.Title, len(set.Tracks)), Level: LevelInfo})
		}
	}

	m.mu.Lock()
	m.sets = sets
	m.totalFiles = 0
	for _, set := range sets {
		m.totalFiles += int32(len(set.Tracks))
		if set.HasArtwork() && (m.settings.SaveCoverArtInFolder || m.settings.SaveCoverArtInTags) {
			m.totalFiles++
		}
	}
	m.mu.Unlock()

	if len(sets) == 0 {
		return ErrNothingFound
	}
	return nil
}

// StartDownloads begins downloading all initialized sets.
func (m *Manager) StartDownloads(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.settings.MaxConcurrentSetsDownload, 1))

	for _, set := range m.Sets() {
		set := set
		g.Go(func() error {
			return m.downloadSet(ctx, set)
		})
	}

	return g.Wait()
}

// Sets returns the sets found by Initialize.
func (m *Manager) Sets() []*model.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

// GetProgress returns current download progress. total grows as stream
// sizes become known.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	m.mu.RLock()
	filesTotal = m.totalFiles
	m.mu.RUnlock()
	return m.receivedBytes.Load(), m.totalBytes.Load(), m.downloadedFiles.Load(), filesTotal
}

// GetSetNames returns the names of all initialized sets.
func (m *Manager) GetSetNames() []string {
	sets := m.Sets()
	names := make([]string, len(sets))
	for i, set := range sets {
		names[i] = fmt.Sprintf("%s - %s (%d tracks)", set.Artist, set.Title, len(set.Tracks))
	}
	return names
}

func (m *Manager) parseInputURLs(input string) []string {
	var urls []string
	for _, line := range strings.Fields(input) {
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}

func (m *Manager) downloadSet(ctx context.Context, set *model.Set) error {
	if err := ioutils.EnsureDir(set.Path); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
		return err
	}

	var artwork []byte
	if (m.settings.SaveCoverArtInTags || m.settings.SaveCoverArtInFolder) && set.HasArtwork() {
		var err error
		artwork, err = m.downloadArtwork(ctx, set)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading artwork for %s: %v", set.Title, err), Level: LevelWarning})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.settings.MaxConcurrentTracksDownload, 1))

	var successCount atomic.Int32
	for _, track := range set.Tracks {
		track := track
		g.Go(func() error {
			if err := m.downloadTrack(gctx, track, artwork); err != nil {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", track.Title, err), Level: LevelError})
				return nil // Continue with other tracks
			}
			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.settings.CreatePlaylist {
		content := m.playlist.CreatePlaylist(set)
		if err := ioutils.WriteFile(set.PlaylistPath, []byte(content)); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", set.Title), Level: LevelSuccess})
		}
	}

	if int(successCount.Load()) == len(set.Tracks) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded set: %s", set.Title), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, some tracks failed", set.Title), Level: LevelWarning})
	}

	return nil
}

// downloadArtwork fetches the set artwork, saves it to the set folder when
// configured and returns the JPEG bytes to embed in tags, or nil when
// artwork is not embedded.
func (m *Manager) downloadArtwork(ctx context.Context, set *model.Set) ([]byte, error) {
	var texture *convert.Texture
	err := m.withRetries(ctx, "artwork of "+set.Title, func() error {
		var err error
		texture, err = convert.FetchTexture(ctx, m.client, set.ArtworkURL, m.imageService)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.downloadedFiles.Add(1)

	if m.settings.SaveCoverArtInFolder {
		img := texture.Image
		if m.settings.CoverArtInFolderResize {
			img = m.imageService.Resize(img, m.settings.CoverArtInFolderMaxSize, m.settings.CoverArtInFolderMaxSize)
		}
		data, err := m.imageService.EncodeJPEG(img)
		if err == nil {
			err = ioutils.WriteFile(set.ArtworkPath, data)
		}
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving artwork: %v", err), Level: LevelWarning})
		}
	}

	var artwork []byte
	if m.settings.SaveCoverArtInTags {
		img := texture.Image
		if m.settings.CoverArtInTagsResize {
			img = m.imageService.Resize(img, m.settings.CoverArtInTagsMaxSize, m.settings.CoverArtInTagsMaxSize)
		}
		if artwork, err = m.imageService.EncodeJPEG(img); err != nil {
			return nil, err
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded artwork for %s", set.Title), Level: LevelVerbose})
	return artwork, nil
}

func (m *Manager) downloadTrack(ctx context.Context, track *model.Track, artwork []byte) error {
	if info, err := os.Stat(track.Path); err == nil && info.Size() > 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", track.FileName()), Level: LevelVerbose})
		m.downloadedFiles.Add(1)
		return nil
	}

	// streamed to a side file so an interrupted run never leaves a
	// partial track at the final path
	partPath := track.Path + ".part"
	err := m.withRetries(ctx, track.Title, func() error {
		var written, total int64
		_, err := convert.Download(ctx, m.client, track.StreamURL, partPath, func(w, t int64) {
			m.receivedBytes.Add(w - written)
			written = w
			if total == 0 && t > 0 {
				total = t
				m.totalBytes.Add(t)
			}
		})
		if err != nil {
			// the attempt's bytes are counted again by the next one
			m.receivedBytes.Add(-written)
			m.totalBytes.Add(-total)
		}
		return err
	})
	if err == nil {
		err = os.Rename(partPath, track.Path)
	}
	if err != nil {
		os.Remove(partPath)
		return err
	}

	m.downloadedFiles.Add(1)

	if m.settings.ModifyTags || artwork != nil {
		if err := m.tagger.SaveTags(track, artwork); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", track.Title, err), Level: LevelWarning})
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", track.FileName()), Level: LevelVerbose})
	return nil
}

// withRetries runs fn up to DownloadMaxRetries times, waiting between
// attempts. Client errors other than 429 are not retried.
func (m *Manager) withRetries(ctx context.Context, what string, fn func() error) error {
	attempts := max(m.settings.DownloadMaxRetries, 1)

	var err error
	for tries := 0; tries < attempts; tries++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) || tries == attempts-1 {
			break
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", tries+1, attempts-1, what), Level: LevelWarning})
		m.waitForRetry(ctx, tries)
	}
	return err
}

func retryable(err error) bool {
	var fe *http.FetchError
	if !errors.As(err, &fe) {
		return true
	}
	switch fe.Kind {
	case http.KindStatus:
		return fe.StatusCode == nethttp.StatusTooManyRequests || fe.StatusCode >= 500
	case http.KindTooManyRedirects, http.KindDecode:
		return false
	default:
		return true
	}
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) {
	cooldown := m.settings.DownloadRetryCooldown * math.Pow(m.settings.DownloadRetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

func (m *Manager) progress(event ProgressEvent) {
	level := slog.LevelDebug
	switch event.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	m.logger.Log(context.Background(), level, event.Message)

	if m.onProgress != nil {
		m.onProgress(event)
	}
}
