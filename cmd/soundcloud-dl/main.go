package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/handiism/soundcloud-downloader/internal/auth"
	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/convert"
	"github.com/handiism/soundcloud-downloader/internal/download"
	"github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/logging"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

type authCmd struct {
	Print bool `arg:"--print" help:"print the consent URL instead of opening a browser"`
	Port  *int `arg:"--port" help:"loopback port (overrides config)"`
}

type resolveCmd struct {
	URL string `arg:"positional,required" help:"public SoundCloud URL"`
}

type fetchCmd struct {
	URL    string `arg:"positional,required" help:"URL to fetch, redirects are followed"`
	Output string `arg:"-o,--output" help:"file name under the working directory"`
	Save   bool   `arg:"-s,--save" help:"save under the last path segment of the URL"`
}

type downloadCmd struct {
	URLs     []string `arg:"positional,required" help:"track, set or user URLs"`
	Output   string   `arg:"-o,--output" help:"output directory (overrides config)"`
	Playlist bool     `arg:"-p,--playlist" help:"create playlist file"`
	DryRun   bool     `arg:"--dry-run" help:"resolve URLs without downloading"`
}

type args struct {
	Auth     *authCmd     `arg:"subcommand:auth" help:"authorize with SoundCloud through a loopback redirect"`
	Resolve  *resolveCmd  `arg:"subcommand:resolve" help:"print the API URI behind a public URL"`
	Fetch    *fetchCmd    `arg:"subcommand:fetch" help:"fetch a URL"`
	Download *downloadCmd `arg:"subcommand:download" help:"download tracks and sets"`

	Config  string `arg:"-c,--config" help:"path to config file"`
	Verbose bool   `arg:"-v,--verbose" help:"show verbose output"`
}

func (args) Description() string {
	return "SoundCloud Downloader - Download tracks and sets from SoundCloud\nFor interactive mode, use: soundcloud-tui\n"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	settings, err := loadSettings(a.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if a.Verbose {
		settings.LogLevel = "debug"
	}
	logger := logging.New(settings.LogLevel, settings.LogFile)
	slog.SetDefault(logger)

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	switch {
	case a.Auth != nil:
		err = runAuth(ctx, settings, a.Auth, logger)
	case a.Resolve != nil:
		err = runResolve(ctx, settings, a.Resolve, logger)
	case a.Fetch != nil:
		err = runFetch(ctx, settings, a.Fetch, logger)
	case a.Download != nil:
		err = runDownload(ctx, settings, a.Download, a.Verbose, logger)
	}

	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nCancelled.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadSettings(path string) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if path != "" {
		var err error
		if settings, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	return settings, settings.Validate()
}

func newClient(settings *config.Settings, logger *slog.Logger) *http.Client {
	return http.NewClient(
		http.WithUserAgent(settings.UserAgent),
		http.WithRedirectLimit(settings.RedirectLimit),
		http.WithRetries(settings.FetchMaxRetries),
		http.WithLogger(logger),
	)
}

func runAuth(ctx context.Context, settings *config.Settings, cmd *authCmd, logger *slog.Logger) error {
	if cmd.Port != nil {
		settings.ListenPort = *cmd.Port
	}
	cfg, err := settings.ToAuthConfig()
	if err != nil {
		return err
	}

	opener := auth.BrowserOpener()
	if cmd.Print {
		opener = auth.PrintOpener(func(u string) {
			fmt.Printf("Open this URL to authorize:\n\n  %s\n\n", u)
		})
	}

	fmt.Printf("Waiting for SoundCloud on localhost:%d/%s ...\n", cfg.Port, strings.TrimPrefix(cfg.CallbackPath, "/"))
	grant, err := auth.New(cfg, auth.WithOpener(opener), auth.WithLogger(logger)).Authenticate(ctx)
	if err != nil {
		return err
	}

	fmt.Println("✅ Authenticated")
	fmt.Printf("code=%s\nredirect_uri=%s\n", grant.Code, grant.RedirectURI)
	return nil
}

func runResolve(ctx context.Context, settings *config.Settings, cmd *resolveCmd, logger *slog.Logger) error {
	if settings.ClientID == "" {
		return download.ErrNoClientID
	}
	resolver := soundcloud.NewResolver(newClient(settings, logger), settings.ClientID,
		soundcloud.WithEndpoint(settings.ResolveURL),
		soundcloud.WithLogger(logger),
	)

	uri, err := resolver.ResolveURL(ctx, cmd.URL)
	if err != nil {
		return err
	}
	fmt.Println(uri)
	return nil
}

func runFetch(ctx context.Context, settings *config.Settings, cmd *fetchCmd, logger *slog.Logger) error {
	client := newClient(settings, logger)

	name := cmd.Output
	if name == "" && cmd.Save {
		name = defaultFileName(cmd.URL)
	}
	if name == "" {
		res, err := client.Fetch(ctx, cmd.URL)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(res.Body)
		return err
	}

	written, err := convert.File(ctx, client, cmd.URL, settings.WorkingDirectory, name)
	if err != nil {
		return err
	}
	fmt.Println(written)
	return nil
}

func runDownload(ctx context.Context, settings *config.Settings, cmd *downloadCmd, verbose bool, logger *slog.Logger) error {
	if cmd.Output != "" {
		settings.DownloadsPath = filepath.Join(cmd.Output, "{artist}", "{set}")
	}
	if cmd.Playlist {
		settings.CreatePlaylist = true
	}

	// Create manager with progress callback
	manager := download.NewManager(settings, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	}, download.WithLogger(logger))

	fmt.Println("☁ SoundCloud Downloader")
	fmt.Println(strings.Repeat("━", 40))
	fmt.Println()

	if err := manager.Initialize(ctx, strings.Join(cmd.URLs, "\n")); err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	if cmd.DryRun {
		fmt.Println("\n[Dry run - not downloading]")
		return nil
	}

	fmt.Println("\n📥 Starting downloads...")
	fmt.Println()

	if err := manager.StartDownloads(ctx); err != nil {
		return err
	}

	received, total, filesReceived, filesTotal := manager.GetProgress()
	fmt.Println()
	fmt.Println(strings.Repeat("━", 40))
	fmt.Printf("✨ Complete! Downloaded %d/%d files (%.2f MB)\n", filesReceived, filesTotal, float64(received)/1024/1024)
	if total > 0 && received < total {
		fmt.Printf("   (%.2f MB expected)\n", float64(total)/1024/1024)
	}
	return nil
}

// defaultFileName derives a file name from the last path segment of rawURL.
func defaultFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return ""
	}
	return name
}

