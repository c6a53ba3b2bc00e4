package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"replharvest/pkg/models"
)

// TUI is a full-screen dashboard for one harvest run. It satisfies the
// orchestrator's progress interface, so it can be passed straight to it.
type TUI struct {
	program *tea.Program
	model   *Model

	mu      sync.Mutex
	started bool
}

// NewTUI creates a dashboard; stop is called when the user quits
func NewTUI(profile string, stop func()) *TUI {
	model := NewModel(profile)
	model.quit = stop

	return &TUI{
		program: tea.NewProgram(model, tea.WithAltScreen()),
		model:   model,
	}
}

// Start runs the dashboard until Stop or the user quits
func (t *TUI) Start() error {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	_, err := t.program.Run()
	return err
}

// Stop closes the dashboard
func (t *TUI) Stop() {
	t.Send(DoneMsg{})
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// SetPhase shows a lifecycle transition
func (t *TUI) SetPhase(phase string) {
	t.Send(PhaseMsg{Phase: phase})
}

// ItemStarted marks an item as in progress
func (t *TUI) ItemStarted(index, total int, item models.Item) {
	t.Send(ItemStartMsg{Index: index, Total: total, Item: item})
}

// ItemFinished records the outcome for an item
func (t *TUI) ItemFinished(index, total int, attempt models.FetchAttempt) {
	t.Send(ItemDoneMsg{Attempt: attempt})
}

// Log adds a line to the events panel. Lines logged before Start go
// straight into the model since nothing reads the program yet.
func (t *TUI) Log(level, format string, args ...interface{}) {
	msg := LogMsg{Level: level, Message: fmt.Sprintf(format, args...)}

	t.mu.Lock()
	if !t.started {
		t.model.AddLogMessage(msg.Level, msg.Message)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.Send(msg)
}
