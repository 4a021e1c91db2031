package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/logging"
	"github.com/handiism/soundcloud-downloader/internal/tui"
)

type args struct {
	Config string `arg:"-c,--config" help:"path to config file"`
}

func main() {
	var a args
	arg.MustParse(&a)

	settings := config.DefaultSettings()
	if a.Config != "" {
		var err error
		if settings, err = config.Load(a.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// stderr belongs to the TUI; log to the file only
	logger := logging.NewWithWriter(nil, settings.LogLevel, settings.LogFile)

	if err := tui.Run(settings, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
