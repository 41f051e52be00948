// Package events provides the scrollable event log overlay: connection
// changes, alerts, link requests and voice commands.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/theme"
)

const maxEntries = 200

// Entry kinds.
const (
	KindWS    = "ws"
	KindErr   = "err"
	KindLink  = "link"
	KindAlert = "alrt"
	KindVoice = "cmd"
)

type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model holds the event log. With AlertsOnly set the view hides everything
// but alerts and errors.
type Model struct {
	Entries    []Entry
	Offset     int // scroll offset from the bottom, in visible entries
	AlertsOnly bool
	Unseen     int // alerts added while the overlay was closed
}

func New() Model {
	return Model{}
}

// Add appends an entry, trims the buffer and scrolls back to the bottom.
func (m *Model) Add(kind, message string) {
	m.Entries = append(m.Entries, Entry{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	if kind == KindAlert {
		m.Unseen++
	}
	m.Offset = 0
}

// MarkSeen clears the unseen alert count.
func (m *Model) MarkSeen() { m.Unseen = 0 }

// ToggleFilter switches between all entries and alerts only.
func (m *Model) ToggleFilter() {
	m.AlertsOnly = !m.AlertsOnly
	m.Offset = 0
}

func (m Model) visible() []Entry {
	if !m.AlertsOnly {
		return m.Entries
	}
	var out []Entry
	for _, e := range m.Entries {
		if e.Kind == KindAlert || e.Kind == KindErr {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) ScrollUp(n int) {
	m.Offset += n
	limit := len(m.visible()) - 1
	if limit < 0 {
		limit = 0
	}
	if m.Offset > limit {
		m.Offset = limit
	}
}

func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	entries := m.visible()
	title := theme.StyleHeader.Render(" EVENTS ")
	if m.AlertsOnly {
		title += theme.StyleDimmed.Render(" (alerts)")
	}
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  f:filter  esc:close  %d entries", len(entries)))

	if len(entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(entries) - m.Offset
	if end < 0 {
		end = 0
	}
	start := max(end-visibleLines, 0)

	var lines []string
	for _, e := range entries[start:end] {
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(4).Render(e.Kind)
		msg := e.Message
		if innerW > 23 && len(msg) > innerW-20 {
			msg = msg[:innerW-23] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, msg))
	}

	scroll := ""
	if m.Offset > 0 {
		scroll = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), scroll, help)
	return panelStyle(innerW).Render(content)
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindWS:
		return theme.ColorAvailable
	case KindErr, KindAlert:
		return theme.ColorDanger
	case KindLink:
		return theme.ColorLinked
	case KindVoice:
		return theme.ColorPointer
	default:
		return theme.ColorDimmed
	}
}
