// Package detail renders the host info flyout overlay.
package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/client"
	"github.com/gaze-pointer/monitor/internal/tui/theme"
)

const (
	panelWidth = 64
	labelWidth = 14
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)

	styleSectionHeader = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorDimmed)

	styleError = lipgloss.NewStyle().
			Foreground(theme.ColorDanger)
)

// Model holds the state for the detail overlay.
type Model struct {
	Host      *client.HostState
	LinkError string
}

func New(h *client.HostState) Model {
	return Model{Host: h}
}

// View renders the detail panel, or "" when no host is set.
func (m Model) View() string {
	if m.Host == nil {
		return ""
	}
	return stylePanel.Width(panelWidth).Render(m.renderInner(m.Host))
}

// State returns the display state of h.
func State(h *client.HostState) string {
	return theme.HostState(h.Linked, h.Degraded, h.Available, h.Health.Status == client.StatusFailing)
}

func (m Model) renderInner(h *client.HostState) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Host: "+h.Name) + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	writeRow(&b, "UUID", truncate(h.UUID, 40))
	writeRow(&b, "Index", fmt.Sprintf("%d", h.Index))
	state := State(h)
	writeRow(&b, "State", lipgloss.NewStyle().Foreground(theme.HostColor(state)).Render(theme.HostGlyph(state)+" "+state))
	writeRow(&b, "Connected", yesNo(h.Connected))

	if h.Linked || h.Health.Failures > 0 || h.Health.LastError != "" {
		b.WriteString("\n")
		writeRow(&b, "Health", string(h.Health.Status))
		if h.Health.Failures > 0 {
			writeRow(&b, "Failures", fmt.Sprintf("%d", h.Health.Failures))
		}
		if !h.Health.LastFailure.IsZero() {
			writeRow(&b, "Last Failure", formatAge(h.Health.LastFailure))
		}
		if h.Health.LastError != "" {
			writeRow(&b, "Last Error", truncate(h.Health.LastError, 44))
		}
	}

	if len(h.Sensors) > 0 {
		b.WriteString("\n")
		b.WriteString(styleSectionHeader.Render(fmt.Sprintf("Sensors (%d)", len(h.Sensors))) + "\n")
		for _, s := range h.Sensors {
			b.WriteString(renderSensor(s) + "\n")
		}
	}

	if m.LinkError != "" {
		b.WriteString("\n")
		b.WriteString(styleError.Render("Link error: "+m.LinkError) + "\n")
	}

	b.WriteString("\n")
	footer := "[enter] link  [esc] close"
	switch {
	case h.Linked:
		footer = "[u] unlink  [esc] close"
	case !h.Available:
		footer = "[esc] close  (host not available)"
	}
	b.WriteString(styleFooter.Render(footer))

	return b.String()
}

func renderSensor(s client.SensorView) string {
	glyph, color := "○", theme.ColorDimmed
	switch {
	case s.Streaming:
		glyph, color = "●", theme.ColorLinked
	case s.Connected:
		glyph, color = "◎", theme.ColorAvailable
	}
	name := s.Name
	if len(name) > 22 {
		name = name[:21] + "…"
	}
	return fmt.Sprintf("  %s %-6s %-22s %s",
		lipgloss.NewStyle().Foreground(color).Render(glyph),
		s.Type,
		name,
		theme.StyleDimmed.Render(truncate(s.UUID, 24)),
	)
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label+":") + styleValue.Render(value) + "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds ago", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}
