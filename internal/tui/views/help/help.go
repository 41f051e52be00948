// Package help renders the help overlay as Markdown through glamour.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/theme"
)

const intro = `# gaze-monitor

Hosts are eye trackers announced on the sensor network. Linking a host
starts its scene camera and gaze streams; the server then maps every gaze
sample onto the screen through the four calibration markers and moves the
pointer. Only one host is linked at a time.

A host that keeps failing to stream is marked **degraded**. Force-restart
the companion app on the device, then link it again.
`

// Model caches the rendered help text.
type Model struct {
	Style string // glamour standard style, "dark" when empty
	width int
	md    string
	out   string
}

func New() Model {
	return Model{}
}

// Markdown builds the help document for the given key groups.
func Markdown(groups [][]key.Binding) string {
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n## Keys\n\n| Key | Action |\n| --- | --- |\n")
	for _, group := range groups {
		for _, k := range group {
			h := k.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	return b.String()
}

// Render renders md wrapped for width. Repeated calls with the same input
// return the cached output.
func (m *Model) Render(md string, width int) string {
	if m.out != "" && m.width == width && m.md == md {
		return m.out
	}
	style := m.Style
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	m.width, m.md, m.out = width, md, out
	return out
}

// View renders the help panel.
func (m *Model) View(groups [][]key.Binding, width int) string {
	body := m.Render(Markdown(groups), width)
	return lipgloss.NewStyle().
		Width(max(width-4, 24)).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.TrimRight(body, "\n") + "\n" + theme.StyleDimmed.Render("  esc:close"))
}
