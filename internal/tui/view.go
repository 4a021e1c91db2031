package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/soundcloud-downloader/internal/download"
)

var (
	accent = lipgloss.Color("#FF5500")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFD7FF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	summaryCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
)

var keyHints = map[State]string{
	StateInput:          "enter: download • ctrl+l: log in • ctrl+t: playlist • ctrl+o: verbose • esc: quit",
	StateAuthenticating: "esc: cancel",
	StateInitializing:   "esc: cancel",
	StateDownloading:    "esc: cancel",
	StateComplete:       "r: new download • q: quit",
	StateError:          "r: new download • q: quit",
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("☁ SoundCloud Downloader"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		m.viewInput(&b)
	case StateAuthenticating:
		m.viewWaiting(&b, "Waiting for authorization in your browser...")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("listening on localhost:%d/%s", m.settings.ListenPort, m.settings.CallbackPath)))
		b.WriteString("\n")
	case StateInitializing:
		m.viewWaiting(&b, "Resolving URLs...")
		m.viewLogs(&b)
	case StateDownloading:
		m.viewDownloading(&b)
	case StateComplete:
		b.WriteString(summaryCard.Render(fmt.Sprintf("Done!\n\nSets:  %d\nFiles: %d/%d\nSize:  %s",
			len(m.sets), m.stats.filesDone, m.stats.filesTotal, megabytes(m.stats.received))))
		b.WriteString("\n")
	case StateError:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n\n")
		m.viewLogs(&b)
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(keyHints[m.state]))
	return b.String()
}

func (m Model) viewInput(b *strings.Builder) {
	b.WriteString(headStyle.Render("Track, set or profile URL"))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	fmt.Fprintf(b, "  %s create playlist\n", checkbox(m.playlist))
	fmt.Fprintf(b, "  %s verbose output\n", checkbox(m.verbose))
	b.WriteString("\n")

	switch {
	case m.grant != nil:
		b.WriteString(okStyle.Render("✓ Authenticated"))
	case m.authenticator == nil:
		b.WriteString(warnStyle.Render("no client_id configured"))
	default:
		b.WriteString(mutedStyle.Render("not logged in"))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("saving to " + m.settings.DownloadsPath))
	b.WriteString("\n\n")
	m.viewLogs(b)
}

func (m Model) viewWaiting(b *strings.Builder, what string) {
	b.WriteString(m.spinner.View() + " " + headStyle.Render(what))
	b.WriteString("\n\n")
}

func (m Model) viewDownloading(b *strings.Builder) {
	for _, set := range m.sets {
		b.WriteString(infoStyle.Render("♪ " + set))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(m.stats.percent()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d/%d files, %s", m.stats.filesDone, m.stats.filesTotal, megabytes(m.stats.received))))
	b.WriteString("\n\n")
	m.viewLogs(b)
}

func (m Model) viewLogs(b *strings.Builder) {
	for _, entry := range m.logs {
		style, mark := mutedStyle, "·"
		switch entry.Level {
		case download.LevelError:
			style, mark = errStyle, "✗"
		case download.LevelWarning:
			style, mark = warnStyle, "!"
		case download.LevelSuccess:
			style, mark = okStyle, "✓"
		case download.LevelInfo:
			style, mark = infoStyle, "›"
		}
		b.WriteString(style.Render(mark + " " + entry.Message))
		b.WriteString("\n")
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}
