// Package theme provides the Lip Gloss color palette and reusable styles
// for the gaze-monitor TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Host state colors.
var (
	ColorLinked    = lipgloss.Color("#22c55e")
	ColorAvailable = lipgloss.Color("#3b82f6")
	ColorFailing   = lipgloss.Color("#d97706")
	ColorDegraded  = lipgloss.Color("#dc2626")
	ColorOffline   = lipgloss.Color("#374151")
	ColorDefault   = lipgloss.Color("#9ca3af")
)

// Mapping outcome colors.
var (
	ColorMove    = lipgloss.Color("#22c55e")
	ColorNoGaze  = lipgloss.Color("#4b5563")
	ColorPartial = lipgloss.Color("#d97706")
	ColorMiss    = lipgloss.Color("#854d0e")
	ColorBad     = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorPointer = lipgloss.Color("#f59e0b")
)

// HostState names the display state of a host. Degraded wins over linked.
func HostState(linked, degraded, available, failing bool) string {
	switch {
	case degraded:
		return "degraded"
	case linked && failing:
		return "failing"
	case linked:
		return "linked"
	case available:
		return "available"
	default:
		return "offline"
	}
}

// HostColor returns the color for a host display state.
func HostColor(state string) lipgloss.Color {
	switch state {
	case "linked":
		return ColorLinked
	case "available":
		return ColorAvailable
	case "failing":
		return ColorFailing
	case "degraded":
		return ColorDegraded
	case "offline":
		return ColorOffline
	default:
		return ColorDefault
	}
}

// HostGlyph returns a Unicode glyph for a host display state.
func HostGlyph(state string) string {
	switch state {
	case "linked":
		return "●"
	case "available":
		return "○"
	case "failing":
		return "◌"
	case "degraded":
		return "✗"
	case "offline":
		return "·"
	default:
		return "?"
	}
}

// OutcomeColor returns the color for a mapping outcome.
func OutcomeColor(outcome string) lipgloss.Color {
	switch outcome {
	case "move":
		return ColorMove
	case "no_gaze", "":
		return ColorNoGaze
	case "missing_markers":
		return ColorPartial
	case "miss":
		return ColorMiss
	case "no_markers", "degenerate":
		return ColorBad
	default:
		return ColorDefault
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
