package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/handiism/soundcloud-downloader/internal/auth"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

// ErrNoClientID is returned when an operation needs the SoundCloud client
// id and none is configured.
var ErrNoClientID = errors.New("no SoundCloud client id configured")

// Settings holds all configuration options.
type Settings struct {
	// SoundCloud application
	ClientID        string `json:"client_id" koanf:"client_id"`
	ConnectURL      string `json:"connect_url" koanf:"connect_url"`
	ResolveURL      string `json:"resolve_url" koanf:"resolve_url"`
	ListenPort      int    `json:"listen_port" koanf:"listen_port"`
	CallbackPath    string `json:"callback_path" koanf:"callback_path"`
	AuthTimeout     string `json:"auth_timeout" koanf:"auth_timeout"`
	RedirectLimit   int    `json:"redirect_limit" koanf:"redirect_limit"`
	FetchMaxRetries int    `json:"fetch_max_retries" koanf:"fetch_max_retries"`
	UserAgent       string `json:"user_agent" koanf:"user_agent"`

	// WorkingDirectory is the root for files written by the fetch command.
	WorkingDirectory string `json:"working_directory" koanf:"working_directory"`

	// Download settings
	DownloadsPath               string  `json:"downloads_path" koanf:"downloads_path"`
	MaxConcurrentSetsDownload   int     `json:"max_concurrent_sets" koanf:"max_concurrent_sets"`
	MaxConcurrentTracksDownload int     `json:"max_concurrent_tracks" koanf:"max_concurrent_tracks"`
	DownloadMaxRetries          int     `json:"download_max_retries" koanf:"download_max_retries"`
	DownloadRetryCooldown       float64 `json:"download_retry_cooldown" koanf:"download_retry_cooldown"`
	DownloadRetryExponent       float64 `json:"download_retry_exponent" koanf:"download_retry_exponent"`

	// File naming
	FileNameFormat         string `json:"file_name_format" koanf:"file_name_format"`
	CoverArtFileNameFormat string `json:"cover_art_file_name_format" koanf:"cover_art_file_name_format"`
	PlaylistFileNameFormat string `json:"playlist_file_name_format" koanf:"playlist_file_name_format"`

	// Cover art settings
	SaveCoverArtInFolder    bool `json:"save_cover_art_in_folder" koanf:"save_cover_art_in_folder"`
	SaveCoverArtInTags      bool `json:"save_cover_art_in_tags" koanf:"save_cover_art_in_tags"`
	CoverArtInFolderResize  bool `json:"cover_art_in_folder_resize" koanf:"cover_art_in_folder_resize"`
	CoverArtInFolderMaxSize int  `json:"cover_art_in_folder_max_size" koanf:"cover_art_in_folder_max_size"`
	CoverArtInTagsResize    bool `json:"cover_art_in_tags_resize" koanf:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize   int  `json:"cover_art_in_tags_max_size" koanf:"cover_art_in_tags_max_size"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" koanf:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" koanf:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended" koanf:"m3u_extended"`

	// Tag settings
	ModifyTags bool `json:"modify_tags" koanf:"modify_tags"`

	// Logging
	LogLevel string `json:"log_level" koanf:"log_level"`
	LogFile  string `json:"log_file" koanf:"log_file"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		ClientID:        "",
		ConnectURL:      "https://soundcloud.com/connect",
		ResolveURL:      "https://api.soundcloud.com/resolve",
		ListenPort:      8080,
		CallbackPath:    "soundcloud-authentication",
		AuthTimeout:     "5m",
		RedirectLimit:   3,
		FetchMaxRetries: 0,
		UserAgent:       "SoundCloudDownloader",

		WorkingDirectory: filepath.Join(homeDir, "SoundCloud"),

		DownloadsPath:               filepath.Join(homeDir, "Music", "SoundCloud", "{artist}", "{set}"),
		MaxConcurrentSetsDownload:   1,
		MaxConcurrentTracksDownload: 4,
		DownloadMaxRetries:          5,
		DownloadRetryCooldown:       0.2,
		DownloadRetryExponent:       4.0,

		FileNameFormat:         "{tracknum} {artist} - {title}.mp3",
		CoverArtFileNameFormat: "{set}",
		PlaylistFileNameFormat: "{set}",

		SaveCoverArtInFolder:    false,
		SaveCoverArtInTags:      true,
		CoverArtInFolderResize:  false,
		CoverArtInFolderMaxSize: 1000,
		CoverArtInTagsResize:    true,
		CoverArtInTagsMaxSize:   500,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		ModifyTags: true,

		LogLevel: "info",
	}
}

// Load reads settings from a JSON file, layered over DefaultSettings.
// A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes JSON settings over the defaults.
func Parse(data []byte) (*Settings, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	settings := DefaultSettings()
	if err := k.Unmarshal("", settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports settings that would make the authenticator or fetcher unusable.
func (s *Settings) Validate() error {
	var errs []error
	if s.ListenPort < 0 || s.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port %d out of range", s.ListenPort))
	}
	if s.RedirectLimit < 0 {
		errs = append(errs, fmt.Errorf("redirect_limit must not be negative"))
	}
	if s.FetchMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch_max_retries must not be negative"))
	}
	if _, err := s.AuthDeadline(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AuthDeadline parses AuthTimeout. An empty value or "0" disables the deadline.
func (s *Settings) AuthDeadline() (time.Duration, error) {
	if s.AuthTimeout == "" || s.AuthTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.AuthTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid auth_timeout %q: %w", s.AuthTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("auth_timeout must not be negative")
	}
	return d, nil
}

// ToAuthConfig converts settings to the authenticator configuration. It
// fails without a client id, since the consent page would reject it.
func (s *Settings) ToAuthConfig() (auth.Config, error) {
	if s.ClientID == "" {
		return auth.Config{}, ErrNoClientID
	}
	timeout, err := s.AuthDeadline()
	if err != nil {
		return auth.Config{}, err
	}
	return auth.Config{
		ClientID:     s.ClientID,
		ConnectURL:   s.ConnectURL,
		Port:         s.ListenPort,
		CallbackPath: s.CallbackPath,
		Timeout:      timeout,
	}, nil
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	var pf model.PlaylistFormat
	switch s.PlaylistFormat {
	case "m3u":
		pf = model.PlaylistFormatM3U
	case "pls":
		pf = model.PlaylistFormatPLS
	case "wpl":
		pf = model.PlaylistFormatWPL
	case "zpl":
		pf = model.PlaylistFormatZPL
	default:
		pf = model.PlaylistFormatM3U
	}

	return &model.PathConfig{
		DownloadsPath:          s.DownloadsPath,
		CoverArtFileNameFormat: s.CoverArtFileNameFormat,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		PlaylistFormat:         pf,
	}
}

// ToTrackConfig converts settings to TrackConfig.
func (s *Settings) ToTrackConfig() *model.TrackConfig {
	return &model.TrackConfig{
		FileNameFormat: s.FileNameFormat,
	}
}
