package common

import "github.com/charmbracelet/lipgloss"

const (
	COLOR_GREY      = "241"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
	COLOR_PURPLE    = "#7D56F4"
	COLOR_GREEN     = "42"
	COLOR_RED       = "196"
)

var (
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Padding(1, 2)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_RED))
	StatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREEN))
	EmptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Italic(true)
	LabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_LIGHTBLUE)).Bold(true)
)

func DefaultWindowWidth(width int) int {
	if width <= 0 {
		return 80
	}
	return width
}

func DefaultWindowHeight(height int) int {
	if height <= 0 {
		return 24
	}
	return height
}

// DefaultContentHeight leaves room for header, notice and help line.
func DefaultContentHeight(height int) int {
	h := height - 10
	if h < 5 {
		return 5
	}
	return h
}
