package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Logo printed at the start of a run
const Logo = `
  ┏━┓┏━╸┏━┓╻     ╻ ╻┏━┓┏━┓╻ ╻┏━╸┏━┓╺┳╸
  ┣┳┛┣╸ ┣━┛┃     ┣━┫┣━┫┣┳┛┃┏┛┣╸ ┗━┓ ┃
  ╹┗╸┗━╸╹  ┗━╸   ╹ ╹╹ ╹╹┗╸┗┛ ┗━╸┗━┛ ╹
      bulk export for your Replit projects
`

// Out is where console helpers write
var Out io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("6")
	Yellow  = colorize("3")
	Red     = colorize("1")
	Green   = colorize("2")
	Magenta = colorize("5")
	Dim     = func(text string) string { return render(lipgloss.NewStyle().Faint(true), text) }
)

// colorEnabled is false when stdout is not a terminal or NO_COLOR is set
var colorEnabled = os.Getenv("NO_COLOR") == "" &&
	(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

// SetColor forces colour on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func colorize(ansi string) func(string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ansi))
	return func(text string) string {
		return render(style, text)
	}
}

func render(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

// PrintLogo prints the logo
func PrintLogo() {
	fmt.Fprint(Out, Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}
