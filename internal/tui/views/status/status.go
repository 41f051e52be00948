package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/client"
	"github.com/gaze-pointer/monitor/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Hosts     int
	Available int
	Degraded  int
	Linked    string
	Outcome   string
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetHosts recounts the host totals from the current host list.
func (m *Model) SetHosts(hosts []client.HostState) {
	m.Hosts = len(hosts)
	m.Available, m.Degraded = 0, 0
	m.Linked = ""
	for _, h := range hosts {
		if h.Available {
			m.Available++
		}
		if h.Degraded {
			m.Degraded++
		}
		if h.Linked {
			m.Linked = h.Name
		}
	}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	counts := fmt.Sprintf("%d hosts  %d available", m.Hosts, m.Available)
	if m.Degraded > 0 {
		counts += lipgloss.NewStyle().Foreground(theme.ColorDanger).
			Render(fmt.Sprintf("  %d degraded", m.Degraded))
	}

	linked := theme.StyleDimmed.Render("not linked")
	if m.Linked != "" {
		linked = lipgloss.NewStyle().Foreground(theme.ColorLinked).Render("linked: " + m.Linked)
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts + sep + linked
	if m.Outcome != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.OutcomeColor(m.Outcome)).Render(m.Outcome)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
