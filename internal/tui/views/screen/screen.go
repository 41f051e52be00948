// Package screen renders the tracking panel: a stats row for the latest
// tracking result, a minimap of the target screen with the pointer and its
// recent trail, and a tally of mapping outcomes.
package screen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gaze-pointer/monitor/internal/tui/client"
	"github.com/gaze-pointer/monitor/internal/tui/theme"
)

const trailLen = 8

// Model holds the tracking panel state.
type Model struct {
	Width int

	tracking client.Tracking
	trail    []client.Point // relative points, oldest first
	tally    map[string]int
	total    int
}

func New() Model {
	return Model{tally: make(map[string]int)}
}

// SetTracking records the latest tracking result. Repeated ticks are
// counted once.
func (m *Model) SetTracking(tr client.Tracking) {
	if tr.Tick != 0 && tr.Tick == m.tracking.Tick {
		return
	}
	m.tracking = tr
	if tr.Outcome != "" {
		m.tally[tr.Outcome]++
		m.total++
	}
	if tr.Relative != nil && tr.Outcome == "move" {
		m.trail = append(m.trail, *tr.Relative)
		if len(m.trail) > trailLen {
			m.trail = m.trail[len(m.trail)-trailLen:]
		}
	}
	if tr.Host == "" {
		m.trail = nil
	}
}

// Tracking returns the latest tracking result.
func (m Model) Tracking() client.Tracking { return m.tracking }

// Reset clears the trail and the outcome tally.
func (m *Model) Reset() {
	m.trail = nil
	m.tally = make(map[string]int)
	m.total = 0
}

func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsRow(width),
		m.renderMinimap(min(width, 64)),
		m.renderTally(width),
	)
}

func (m Model) renderStatsRow(width int) string {
	tr := m.tracking
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	host := tr.Host
	if host == "" {
		host = "none"
	}
	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render("Host: " + host),
		statStyle.Foreground(theme.ColorDimmed).Render(fmt.Sprintf("Tick: %d", tr.Tick)),
		statStyle.Foreground(theme.ColorDimmed).Render(fmt.Sprintf("Frame: %d", tr.FrameIndex)),
		statStyle.Foreground(theme.ColorAvailable).Render(fmt.Sprintf("Markers: %d", tr.Markers)),
	}
	if tr.Outcome != "" {
		outcome := tr.Outcome
		if len(tr.Missing) > 0 {
			outcome += fmt.Sprintf(" %v", tr.Missing)
		}
		stats = append(stats, statStyle.Foreground(theme.OutcomeColor(tr.Outcome)).Render(outcome))
	}
	if tr.Pointer != nil {
		stats = append(stats, statStyle.Foreground(theme.ColorPointer).
			Render(fmt.Sprintf("Pointer: %.0f,%.0f", tr.Pointer.X, tr.Pointer.Y)))
	}

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// cell maps a relative point to a grid cell, clamped to the grid.
func cell(p client.Point, cols, rows int) (int, int) {
	x := int(p.X * float64(cols))
	y := int(p.Y * float64(rows))
	return max(0, min(x, cols-1)), max(0, min(y, rows-1))
}

func (m Model) renderMinimap(width int) string {
	cols := width - 4
	rows := cols / 4
	if rows < 4 {
		rows = 4
	}

	grid := make([][]string, rows)
	dim := theme.StyleDimmed.Render("·")
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = dim
		}
	}

	trailStyle := lipgloss.NewStyle().Foreground(theme.ColorBorder)
	for _, p := range m.trail {
		c, r := cell(p, cols, rows)
		grid[r][c] = trailStyle.Render("•")
	}
	if rel := m.tracking.Relative; rel != nil && m.tracking.Outcome == "move" {
		c, r := cell(*rel, cols, rows)
		grid[r][c] = lipgloss.NewStyle().Foreground(theme.ColorPointer).Bold(true).Render("◆")
	}

	lines := make([]string, rows)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderTally(width int) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBright).Render("  Outcomes")
	if m.total == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, theme.StyleDimmed.Render("  No tracking yet"))
	}

	names := make([]string, 0, len(m.tally))
	for name := range m.tally {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if m.tally[names[i]] != m.tally[names[j]] {
			return m.tally[names[i]] > m.tally[names[j]]
		}
		return names[i] < names[j]
	})

	barWidth := max(min(width-32, 30), 8)
	lines := []string{header}
	for _, name := range names {
		pct := float64(m.tally[name]) / float64(m.total)
		label := lipgloss.NewStyle().Foreground(theme.OutcomeColor(name)).Width(18).Render(name)
		lines = append(lines, fmt.Sprintf("  %s %s %6d", label, renderBar(pct, barWidth, theme.OutcomeColor(name)), m.tally[name]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBar(pct float64, width int, color lipgloss.Color) string {
	filled := max(0, min(int(pct*float64(width)), width))
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", width-filled))
	return bar + fmt.Sprintf(" %3.0f%%", pct*100)
}
