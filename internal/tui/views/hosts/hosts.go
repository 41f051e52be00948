// Package hosts implements the host list view. Hosts are grouped into
// linked, available and offline sections; the cursor moves over all of them
// in display order.
package hosts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/client"
	"github.com/gaze-pointer/monitor/internal/tui/theme"
	"github.com/gaze-pointer/monitor/internal/tui/views/detail"
)

const nameWidth = 20

type Model struct {
	hosts []*client.HostState // display order

	SelectedIdx int
	Width       int
}

func New() Model {
	return Model{}
}

// SetHosts replaces the host list. The selection follows the previously
// selected host by uuid when it is still present.
func (m *Model) SetHosts(hosts map[string]*client.HostState) {
	var prev string
	if sel := m.Selected(); sel != nil {
		prev = sel.UUID
	}

	m.hosts = make([]*client.HostState, 0, len(hosts))
	for _, h := range hosts {
		m.hosts = append(m.hosts, h)
	}
	sort.Slice(m.hosts, func(i, j int) bool {
		zi, zj := Classify(m.hosts[i]), Classify(m.hosts[j])
		if zi != zj {
			return zi < zj
		}
		if m.hosts[i].Index != m.hosts[j].Index {
			return m.hosts[i].Index < m.hosts[j].Index
		}
		return m.hosts[i].Name < m.hosts[j].Name
	})

	for i, h := range m.hosts {
		if h.UUID == prev {
			m.SelectedIdx = i
			return
		}
	}
	m.clampSelection()
}

// Len returns the number of hosts.
func (m Model) Len() int { return len(m.hosts) }

func (m *Model) MoveDown() {
	if n := len(m.hosts); n > 0 {
		m.SelectedIdx = (m.SelectedIdx + 1) % n
	}
}

func (m *Model) MoveUp() {
	if n := len(m.hosts); n > 0 {
		m.SelectedIdx = (m.SelectedIdx - 1 + n) % n
	}
}

// JumpTo selects the n-th host (0-based) when it exists.
func (m *Model) JumpTo(n int) {
	if n >= 0 && n < len(m.hosts) {
		m.SelectedIdx = n
	}
}

// Selected returns the host under the cursor, if any.
func (m Model) Selected() *client.HostState {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.hosts) {
		return m.hosts[m.SelectedIdx]
	}
	return nil
}

func (m *Model) clampSelection() {
	switch n := len(m.hosts); {
	case n == 0:
		m.SelectedIdx = 0
	case m.SelectedIdx >= n:
		m.SelectedIdx = n - 1
	}
}

func (m Model) View() string {
	width := m.Width
	if width < 60 {
		width = 60
	}

	header := "═══ HOSTS " + strings.Repeat("═", width-12)
	sections := []string{theme.StyleHeader.Render(header)}

	if len(m.hosts) == 0 {
		sections = append(sections, theme.StyleDimmed.Render("  No hosts announced yet"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	zone := Zone(-1)
	for i, h := range m.hosts {
		if z := Classify(h); z != zone {
			zone = z
			if i > 0 || z != ZoneLinked {
				label := "─── " + ZoneName(z) + " "
				sections = append(sections, theme.StyleDimmed.Render(label+strings.Repeat("─", max(width-len(label)-2, 4))))
			}
		}
		sections = append(sections, renderLine(i, h, i == m.SelectedIdx))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderLine(idx int, h *client.HostState, selected bool) string {
	var b strings.Builder
	if selected {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render("> "))
	} else {
		b.WriteString("  ")
	}
	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("%2d", idx+1)))
	b.WriteString("│ ")

	state := detail.State(h)
	style := lipgloss.NewStyle().Foreground(theme.HostColor(state))
	b.WriteString(style.Render(theme.HostGlyph(state)))
	b.WriteByte(' ')

	name := h.Name
	if len(name) > nameWidth {
		name = name[:nameWidth-1] + "…"
	}
	b.WriteString(style.Render(name))
	b.WriteString(strings.Repeat(" ", max(nameWidth-len([]rune(name)), 0)))

	b.WriteString("  ")
	b.WriteString(style.Render(fmt.Sprintf("%-9s", state)))
	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("  %d sensors", len(h.Sensors))))
	if h.Health.Failures > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorWarning).
			Render(fmt.Sprintf("  %d failures", h.Health.Failures)))
	}
	return b.String()
}
