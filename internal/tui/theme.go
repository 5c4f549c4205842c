package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the screens use.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

const cellWidth = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	modeStyle   = lipgloss.NewStyle().Foreground(colorTeal)
	helpStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	noticeStyle = lipgloss.NewStyle().Foreground(colorPeach)
	errorStyle  = lipgloss.NewStyle().Foreground(colorRed)

	cellStyle = lipgloss.NewStyle().
			Width(cellWidth - 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Foreground(colorText)
	selectedCellStyle = cellStyle.Foreground(colorGreen).Bold(true)

	viewerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorLavender).
			Padding(1, 4)
)
