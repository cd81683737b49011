package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/equinology/waleed/pkg/dialog"
)

var (
	colorText     = lipgloss.AdaptiveColor{Light: "#1f2328", Dark: "#e6edf3"}
	colorDim      = lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"}
	colorMuted    = lipgloss.AdaptiveColor{Light: "#8c959f", Dark: "#484f58"}
	colorAccent   = lipgloss.Color("#58a6ff")
	colorHappy    = lipgloss.Color("#3fb950")
	colorConfused = lipgloss.Color("#d29922")
	colorDivider  = lipgloss.Color("#30363d")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	bubbleStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDivider).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Blink(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	optionActiveStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true).
				PaddingLeft(0)

	historyStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	activityStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorDivider)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(1, 0)
)

// face is the assistant's avatar for a mood.
func face(m dialog.Mood) string {
	switch m {
	case dialog.MoodHappy:
		return lipgloss.NewStyle().Foreground(colorHappy).Render("(^‿^)")
	case dialog.MoodConfused:
		return lipgloss.NewStyle().Foreground(colorConfused).Render("(⊙_☉)?")
	default:
		return lipgloss.NewStyle().Foreground(colorText).Render("(•_•)")
	}
}
