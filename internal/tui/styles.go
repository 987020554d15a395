package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/pomo/internal/models"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	colorFocus  = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorShort  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorLong   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorPaused = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	clockStyle = lipgloss.NewStyle().Bold(true).Padding(1, 2)

	mutedStyle = lipgloss.NewStyle().Foreground(colorGray)

	doneStyle = lipgloss.NewStyle().Foreground(colorGray).Strikethrough(true)

	errorStyle = lipgloss.NewStyle().Foreground(colorFocus)
)

// panelStyle frames the task list and the summary.
var panelStyle = lipgloss.NewStyle().
	Padding(0, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder)

func modeColor(mode models.Mode) lipgloss.AdaptiveColor {
	switch mode {
	case models.ModeShortBreak:
		return colorShort
	case models.ModeLongBreak:
		return colorLong
	default:
		return colorFocus
	}
}
