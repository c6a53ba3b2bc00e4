package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentOrange = lipgloss.Color("#F26207")
	accentBlue   = lipgloss.Color("#0079F2")
	okGreen      = lipgloss.Color("#39D353")
	warnYellow   = lipgloss.Color("#F5C518")
	failRed      = lipgloss.Color("#FF4D4F")
	dimWhite     = lipgloss.Color("#B0B0B0")
	faintGrey    = lipgloss.Color("#666666")

	logoStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true).
			Padding(1, 0, 0, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentBlue).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accentBlue).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accentBlue).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(warnYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(failRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnYellow)

	skippedStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(faintGrey)

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// styleFor returns the row style for an item state
func styleFor(state ItemState) lipgloss.Style {
	switch state {
	case ItemFetching:
		return activeStyle
	case ItemFetched:
		return successStyle
	case ItemFailed:
		return errorStyle
	case ItemSkipped:
		return skippedStyle
	default:
		return logMessageStyle
	}
}

// levelColor maps a log level to its colour
func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR":
		return failRed
	case "WARN":
		return warnYellow
	case "SUCCESS":
		return okGreen
	case "INFO":
		return accentBlue
	default:
		return dimWhite
	}
}
