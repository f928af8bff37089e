package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/ttstudio/internal/studio"
)

var (
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	green     = lipgloss.Color("#04B575")
	yellow    = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#ECFD65"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	blue      = lipgloss.AdaptiveColor{Light: "#2F7DE1", Dark: "#6CB6FF"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(red).
				Render

	statusBarWarnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#242424")).
				Background(yellow).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render

	labelStyle    = lipgloss.NewStyle().Foreground(gray).Render
	valueStyle    = lipgloss.NewStyle().Bold(true).Render
	dimStyle      = lipgloss.NewStyle().Foreground(midGray).Render
	headerStyle   = lipgloss.NewStyle().Foreground(fuchsia).Bold(true).Render
	selectedStyle = lipgloss.NewStyle().Foreground(green).Bold(true).Render
	cursorStyle   = lipgloss.NewStyle().Foreground(fuchsia).Render
	activeStyle   = lipgloss.NewStyle().Foreground(cream).Background(green).Padding(0, 1).Render
	speedStyle    = lipgloss.NewStyle().Foreground(gray).Padding(0, 1).Render

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(midGray).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.BorderForeground(fuchsia)
)

func logoView() string {
	return logoStyle.Render("ttstudio")
}

func levelStyle(l studio.Level) func(...string) string {
	switch l {
	case studio.LevelSuccess:
		return lipgloss.NewStyle().Foreground(green).Render
	case studio.LevelWarning:
		return lipgloss.NewStyle().Foreground(yellow).Render
	case studio.LevelError:
		return lipgloss.NewStyle().Foreground(red).Render
	default:
		return lipgloss.NewStyle().Foreground(blue).Render
	}
}

// indent prefixes every line of s with n spaces.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
