// Package tui provides a Bubble Tea terminal user interface for soundcloud-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/soundcloud-downloader/internal/auth"
	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/download"
)

var errCancelled = errors.New("cancelled by user")

const (
	maxLogLines  = 10
	pollInterval = 200 * time.Millisecond
)

// State is the screen the TUI is on.
type State int

const (
	StateInput State = iota
	StateAuthenticating
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// busy reports whether a background command owns the screen.
func (s State) busy() bool {
	return s == StateAuthenticating || s == StateInitializing || s == StateDownloading
}

// finished reports whether the screen waits for quit or restart.
func (s State) finished() bool {
	return s == StateComplete || s == StateError
}

// LogEntry is a progress line shown under the current screen.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// stats mirrors Manager.GetProgress.
type stats struct {
	received, total       int64
	filesDone, filesTotal int32
}

func (s stats) percent() float64 {
	if s.filesTotal == 0 {
		return 0
	}
	return float64(s.filesDone) / float64(s.filesTotal)
}

// Model is the Bubble Tea model of the downloader.
//
// The flow is: enter a URL (optionally log in first with ctrl+l), resolve it
// into sets, download them while polling the manager, then show a summary.
type Model struct {
	state    State
	settings *config.Settings
	logger   *slog.Logger

	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model

	authenticator *auth.Authenticator
	grant         *auth.Grant

	manager *download.Manager
	sets    []string
	stats   stats
	events  chan download.ProgressEvent

	logs []LogEntry
	err  error

	playlist bool
	verbose  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewModel creates the model on the input screen. Invalid authentication
// settings put it straight on the error screen; without a client id, logging
// in is disabled.
func NewModel(settings *config.Settings, logger *slog.Logger) Model {
	input := textinput.New()
	input.Placeholder = "https://soundcloud.com/artist/sets/name"
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accent)

	bar := progress.New(progress.WithGradient("#FF5500", "#FF8800"))
	bar.Width = 50

	m := Model{
		state:     StateInput,
		settings:  settings,
		logger:    logger,
		textInput: input,
		spinner:   spin,
		progress:  bar,
		events:    make(chan download.ProgressEvent, 256),
		playlist:  settings.CreatePlaylist,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	cfg, err := settings.ToAuthConfig()
	if errors.Is(err, config.ErrNoClientID) {
		// downloads report the missing id when they start
		return m
	}
	if err != nil {
		m.fail(err)
		return m
	}
	m.authenticator = auth.New(cfg, auth.WithLogger(logger))
	return m
}

// Init starts the cursor blink and the progress event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.nextEvent())
}

type (
	// ProgressMsg carries one manager progress event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// AuthDoneMsg ends a loopback authentication attempt.
	AuthDoneMsg struct {
		Grant *auth.Grant
		Err   error
	}

	// InitDoneMsg ends URL resolution.
	InitDoneMsg struct {
		Sets    []string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg ends the download of all sets.
	DownloadDoneMsg struct {
		Err error
	}

	pollMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.progress.Update(msg)
		m.progress = bar.(progress.Model)
		return m, cmd

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.addLog(msg.Event.Message, msg.Event.Level)
		}
		return m, m.nextEvent()

	case AuthDoneMsg:
		m.onAuthDone(msg)
		return m, nil

	case InitDoneMsg:
		if msg.Err != nil {
			m.fail(msg.Err)
			return m, nil
		}
		m.sets, m.manager = msg.Sets, msg.Manager
		m.state = StateDownloading
		return m, tea.Batch(m.download(), m.poll())

	case DownloadDoneMsg:
		m.refreshStats()
		switch {
		case m.ctx.Err() != nil:
			m.fail(errCancelled)
		case msg.Err != nil:
			m.fail(msg.Err)
		default:
			m.state = StateComplete
		}
		return m, nil

	case pollMsg:
		if m.state != StateDownloading || m.manager == nil {
			return m, nil
		}
		m.refreshStats()
		return m, tea.Batch(m.progress.SetPercent(m.stats.percent()), m.poll())
	}

	if m.state != StateInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleKey processes shortcuts. Keys it does not claim fall through to
// the URL input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		m.cancel()
		return tea.Quit, true
	}

	switch {
	case m.state.busy():
		if key == "esc" {
			m.cancel()
			m.fail(errCancelled)
		}
		return nil, true

	case m.state.finished():
		switch key {
		case "q", "esc":
			return tea.Quit, true
		case "r":
			m.restart()
		}
		return nil, true
	}

	switch key {
	case "esc":
		return tea.Quit, true
	case "enter":
		if m.textInput.Value() == "" {
			return nil, true
		}
		m.state = StateInitializing
		return tea.Batch(m.resolve(), m.spinner.Tick), true
	case "ctrl+l":
		if m.authenticator == nil {
			return nil, true
		}
		m.authenticator.Reset()
		m.state = StateAuthenticating
		return tea.Batch(m.authenticate(), m.spinner.Tick), true
	case "ctrl+t":
		m.playlist = !m.playlist
		return nil, true
	case "ctrl+o":
		m.verbose = !m.verbose
		return nil, true
	}
	return nil, false
}

func (m *Model) onAuthDone(msg AuthDoneMsg) {
	if m.state != StateAuthenticating {
		// cancelled while waiting
		return
	}
	if msg.Err != nil {
		m.fail(fmt.Errorf("authentication failed: %w", msg.Err))
		return
	}
	m.grant = msg.Grant
	m.state = StateInput
	m.textInput.Focus()
	m.addLog("Authenticated with SoundCloud", download.LevelSuccess)
}

func (m *Model) fail(err error) {
	m.state = StateError
	m.err = err
}

// restart returns to the input screen with a fresh context. The grant is
// kept.
func (m *Model) restart() {
	m.state = StateInput
	m.err = nil
	m.logs = nil
	m.sets = nil
	m.stats = stats{}
	m.manager = nil
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.Reset()
	m.textInput.Focus()
}

func (m *Model) addLog(message string, level download.ProgressLevel) {
	m.logs = append(m.logs, LogEntry{Message: message, Level: level})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

func (m *Model) refreshStats() {
	if m.manager == nil {
		return
	}
	received, total, done, files := m.manager.GetProgress()
	m.stats = stats{received: received, total: total, filesDone: done, filesTotal: files}
}

// nextEvent delivers the next manager event. It is re-issued after every
// ProgressMsg.
func (m Model) nextEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m Model) authenticate() tea.Cmd {
	authenticator, ctx := m.authenticator, m.ctx
	return func() tea.Msg {
		grant, err := authenticator.Authenticate(ctx)
		return AuthDoneMsg{Grant: grant, Err: err}
	}
}

// resolve builds a manager for a copy of the settings with the screen's
// options applied and resolves the input URLs.
func (m Model) resolve() tea.Cmd {
	input := m.textInput.Value()
	settings := *m.settings
	settings.CreatePlaylist = m.playlist
	ctx, events, logger := m.ctx, m.events, m.logger

	return func() tea.Msg {
		manager := download.NewManager(&settings, func(event download.ProgressEvent) {
			select {
			case events <- event:
			default:
				// UI is behind; the event is still logged
			}
		}, download.WithLogger(logger))

		if err := manager.Initialize(ctx, input); err != nil {
			return InitDoneMsg{Err: err}
		}
		return InitDoneMsg{Sets: manager.GetSetNames(), Manager: manager}
	}
}

func (m Model) download() tea.Cmd {
	manager, ctx := m.manager, m.ctx
	return func() tea.Msg {
		return DownloadDoneMsg{Err: manager.StartDownloads(ctx)}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *slog.Logger) error {
	_, err := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen()).Run()
	return err
}
