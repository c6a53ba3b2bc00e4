package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"replharvest/pkg/models"
)

// ItemState is where an item is in the fetch loop
type ItemState int

const (
	ItemPending ItemState = iota
	ItemFetching
	ItemFetched
	ItemFailed
	ItemSkipped
)

// String returns a short label for the state
func (s ItemState) String() string {
	switch s {
	case ItemFetching:
		return "fetching"
	case ItemFetched:
		return "fetched"
	case ItemFailed:
		return "failed"
	case ItemSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Row is one repl in the dashboard
type Row struct {
	Key     string
	Name    string
	State   ItemState
	Retries int
	Fault   string
	Started time.Time
	Elapsed time.Duration
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	profile  string
	phase    string
	rows     map[string]*Row
	order    []string
	total    int
	runStart time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// quit is called when the user asks to stop
	quit func()

	mu sync.RWMutex
}

// NewModel creates a dashboard for profile
func NewModel(profile string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentOrange)

	bar := progress.New(progress.WithGradient(string(accentBlue), string(okGreen)))
	bar.Width = 40

	return &Model{
		spinner:        s,
		bar:            bar,
		profile:        profile,
		phase:          "INIT",
		rows:           make(map[string]*Row),
		runStart:       time.Now(),
		maxLogMessages: 50,
	}
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetPhase records the current lifecycle state
func (m *Model) SetPhase(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

// StartItem marks item as being fetched, adding it if unseen
func (m *Model) StartItem(index, total int, item models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if total > m.total {
		m.total = total
	}
	row := m.row(item)
	row.State = ItemFetching
	row.Started = time.Now()
}

// FinishItem records the outcome of an attempt
func (m *Model) FinishItem(attempt models.FetchAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.row(attempt.Item)
	switch attempt.Outcome {
	case models.OutcomeSuccess:
		row.State = ItemFetched
	case models.OutcomeSkipped:
		row.State = ItemSkipped
	default:
		row.State = ItemFailed
	}
	row.Retries = attempt.RetryCount
	row.Fault = attempt.FaultReason
	row.Elapsed = attempt.Duration
}

func (m *Model) row(item models.Item) *Row {
	row, ok := m.rows[item.IdentityKey]
	if !ok {
		row = &Row{Key: item.IdentityKey, Name: item.DisplayName}
		m.rows[item.IdentityKey] = row
		m.order = append(m.order, item.IdentityKey)
	}
	return row
}

// AddLogMessage adds a log message, keeping the most recent ones
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Rows returns the rows in discovery order
func (m *Model) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Row, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.rows[key])
	}
	return out
}

// Counts tallies rows per state
func (m *Model) Counts() map[ItemState]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[ItemState]int)
	for _, row := range m.rows {
		counts[row.State]++
	}
	if pending := m.total - len(m.rows); pending > 0 {
		counts[ItemPending] += pending
	}
	return counts
}

// Fraction is the share of items that reached a final state
func (m *Model) Fraction() float64 {
	m.mu.RLock()
	total := m.total
	m.mu.RUnlock()
	if total == 0 {
		return 0
	}

	c := m.Counts()
	done := c[ItemFetched] + c[ItemFailed] + c[ItemSkipped]
	return float64(done) / float64(total)
}

// FormatDuration renders d as mm:ss or hh:mm:ss
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
