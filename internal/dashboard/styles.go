package dashboard

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette, named the way the original settings screen named its
// neon palette. termenv picks the richest profile the terminal actually
// supports so these degrade gracefully over SSH/tmux.
var (
	profile = termenv.ColorProfile()

	ColorNeonCyan  = lipgloss.Color("#00FFE5")
	ColorNeonPink  = lipgloss.Color("#FF2E9A")
	ColorLightGray = lipgloss.Color("#C8C8C8")
	ColorGray      = lipgloss.Color("#6A6A6A")
)

var (
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	ActiveTabStyle = TabStyle.Copy().
			Foreground(ColorNeonCyan).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().Foreground(ColorGray)
)

// renderBox draws a titled, rounded-border panel the same way the settings
// screen framed its description column.
func renderBox(title, body string, width int, borderColor lipgloss.Color) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(width).
		Render(body)

	if title == "" {
		return box
	}
	titled := lipgloss.NewStyle().Foreground(borderColor).Bold(true).Render(" " + title + " ")
	lines := lipgloss.NewStyle().Render(box)
	return titled + "\n" + lines
}

func init() {
	// Degrade to the no-color profile when output isn't a terminal; termenv
	// already detects this, this just makes the dependency on it explicit
	// rather than incidental.
	if profile == termenv.Ascii {
		ColorNeonCyan, ColorNeonPink, ColorLightGray, ColorGray = "", "", "", ""
	}
}
