package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"replharvest/pkg/models"
)

// PhaseMsg reports a lifecycle transition
type PhaseMsg struct {
	Phase string
}

// ItemStartMsg is sent when an item is picked up
type ItemStartMsg struct {
	Index int
	Total int
	Item  models.Item
}

// ItemDoneMsg is sent with the final attempt for an item
type ItemDoneMsg struct {
	Attempt models.FetchAttempt
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg ends the program once the run is over
type DoneMsg struct{}

// TickMsg is sent periodically to refresh elapsed times
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, msg.Width/2-12)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case PhaseMsg:
		m.SetPhase(msg.Phase)
		return m, nil

	case ItemStartMsg:
		m.StartItem(msg.Index, msg.Total, msg.Item)
		return m, nil

	case ItemDoneMsg:
		m.FinishItem(msg.Attempt)
		switch msg.Attempt.Outcome {
		case models.OutcomeSuccess:
			m.AddLogMessage("SUCCESS", "Fetched "+msg.Attempt.Item.DisplayName)
		case models.OutcomeFailure:
			m.AddLogMessage("ERROR", msg.Attempt.Item.DisplayName+": "+msg.Attempt.FaultReason)
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.quit != nil {
			m.quit()
		}
		m.AddLogMessage("WARN", "Stopping the run")
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
