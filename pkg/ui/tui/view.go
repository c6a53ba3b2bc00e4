package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `┏━┓┏━╸┏━┓╻     ╻ ╻┏━┓┏━┓╻ ╻┏━╸┏━┓╺┳╸
┣┳┛┣╸ ┣━┛┃     ┣━┫┣━┫┣┳┛┃┏┛┣╸ ┗━┓ ┃
╹┗╸┗━╸╹  ┗━╸   ╹ ╹╹ ╹╹┗╸┗┛ ┗━╸┗━┛ ╹ `

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := (m.width - 4) / 2
	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(half), m.renderItemsPanel(half)),
		"  ",
		m.renderLogsPanel(half),
	)

	sections := []string{logoStyle.Render(logo), main}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q stop • ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatsPanel shows the lifecycle phase, counters and overall progress
func (m *Model) renderStatsPanel(width int) string {
	counts := m.Counts()
	fraction := m.Fraction()

	m.mu.RLock()
	phase, profile, total, started := m.phase, m.profile, m.total, m.runStart
	m.mu.RUnlock()

	lines := []string{
		titleStyle.Render(" HARVEST "),
		stat("Profile:", "@"+profile),
		stat("Phase:", m.spinner.View()+" "+phase),
		stat("Elapsed:", FormatDuration(time.Since(started))),
		stat("Items:", fmt.Sprintf("%d", total)),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			successStyle.Render("✓"), statsValueStyle.Render(fmt.Sprint(counts[ItemFetched])),
			errorStyle.Render("✗"), statsValueStyle.Render(fmt.Sprint(counts[ItemFailed])),
			skippedStyle.Render("↷"), statsValueStyle.Render(fmt.Sprint(counts[ItemSkipped])),
		),
		m.bar.ViewAs(fraction),
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// renderItemsPanel lists the most recent rows, newest last
func (m *Model) renderItemsPanel(width int) string {
	rows := m.Rows()
	limit := max(5, m.height-24)
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	lines := []string{titleStyle.Render(" REPLS ")}
	if len(rows) == 0 {
		lines = append(lines, skippedStyle.Render("Waiting for the listing..."))
	}
	for _, row := range rows {
		lines = append(lines, renderRow(row, width-4))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderRow(row Row, width int) string {
	icon := map[ItemState]string{
		ItemPending:  "·",
		ItemFetching: "⟳",
		ItemFetched:  "✓",
		ItemFailed:   "✗",
		ItemSkipped:  "↷",
	}[row.State]

	text := icon + " " + row.Name
	if row.Retries > 0 {
		text += fmt.Sprintf(" (retried %d)", row.Retries)
	}
	if row.State == ItemFailed && row.Fault != "" {
		text += " " + row.Fault
	}
	return styleFor(row.State).Render(truncate(text, width))
}

// renderLogsPanel renders the tail of the log
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := max(0, len(m.logMessages)-15)
	var logs []string
	for _, entry := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(entry.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(truncate(entry.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = skippedStyle.Render("No events yet...")
	}

	return panelStyle.Width(width).Height(max(5, m.height-8)).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" EVENTS "), content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  q / ctrl+c  stop the run
  ?           toggle this help
  ctrl+l      clear events

  ` + activeStyle.Render("⟳") + ` fetching   ` + successStyle.Render("✓") + ` fetched   ` +
		errorStyle.Render("✗") + ` failed   ` + skippedStyle.Render("↷") + ` already on disk
`
	return panelStyle.Width(m.width - 2).Render(help)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
