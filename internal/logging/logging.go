// Package logging builds the slog loggers used by the command-line and TUI
// front ends.
//
// Log lines go to stderr and, when a file is configured, to a size-rotated
// log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// slog has no trace level, so it is defined below debug.
	LevelTrace = slog.LevelDebug - 4
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError

	// Disable is a level above every other, used for a silent logger.
	Disable = slog.LevelError + 1000
)

// New returns a text logger writing to stderr at the given level. When file
// is non-empty, records are also appended to that file, rotated at 10 MB.
//
// An unknown level falls back to info and is reported by the returned logger.
func New(level, file string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, file)
}

// NewWithWriter is New with an explicit console writer. A nil w logs to
// the file only.
func NewWithWriter(w io.Writer, level, file string) *slog.Logger {
	lvl, lvlErr := ParseLevel(level)

	if w == nil {
		w = io.Discard
	}

	if file != "" {
		w = io.MultiWriter(w, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: lvl <= LevelDebug,
		Level:     lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format("2006-01-02 15:04:05.000 UTC"))
				}
			case slog.SourceKey:
				if source, ok := a.Value.Any().(*slog.Source); ok {
					a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(source.File), source.Line))
				}
			case slog.LevelKey:
				// otherwise slog prints trace as "DEBUG-4"
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(FormatLevel(l))
				}
			}
			return a
		},
	}))

	if lvlErr != nil {
		logger.Warn("Failed to parse log level, using info", "error", lvlErr)
	}
	return logger
}

// ParseLevel parses a level name. Unknown names return LevelInfo and an error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disable", "none", "off":
		return Disable, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// FormatLevel returns the upper-case name of a level, including trace.
func FormatLevel(level slog.Level) string {
	switch {
	case level < LevelDebug:
		return "TRACE"
	case level < LevelInfo:
		return "DEBUG"
	case level < LevelWarn:
		return "INFO"
	case level < LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: Disable}))
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
