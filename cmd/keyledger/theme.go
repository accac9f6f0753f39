package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/keyledger/internal/categorize"
)

// Catppuccin Mocha, the subset the CLI output uses.
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

const (
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(colorMauve).Bold(true).Underline(true)
	cellStyle    = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	debitStyle   = lipgloss.NewStyle().Foreground(colorPeach)
	creditStyle  = lipgloss.NewStyle().Foreground(colorGreen)
)

func categoryStyle(name string) lipgloss.Style {
	if name == categorize.Uncategorized {
		return mutedStyle
	}
	return lipgloss.NewStyle().Foreground(colorMauve)
}
