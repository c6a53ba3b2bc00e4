package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/models"
)

func TestModelTracksItems(t *testing.T) {
	model := NewModel("ada")
	alpha := models.NewItem("Alpha", "/alpha")
	beta := models.NewItem("Beta", "/beta")

	model.StartItem(1, 3, alpha)
	model.FinishItem(models.FetchAttempt{Item: alpha, Outcome: models.OutcomeSuccess})
	model.StartItem(2, 3, beta)
	model.FinishItem(models.FetchAttempt{Item: beta, Outcome: models.OutcomeFailure, RetryCount: 2, FaultReason: "export-action not found"})

	rows := model.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha", rows[0].Name)
	assert.Equal(t, ItemFetched, rows[0].State)
	assert.Equal(t, ItemFailed, rows[1].State)
	assert.Equal(t, 2, rows[1].Retries)

	counts := model.Counts()
	assert.Equal(t, 1, counts[ItemFetched])
	assert.Equal(t, 1, counts[ItemFailed])
	assert.Equal(t, 1, counts[ItemPending])
	assert.InDelta(t, 2.0/3.0, model.Fraction(), 0.001)
}

func TestModelSkippedItem(t *testing.T) {
	model := NewModel("ada")
	item := models.NewItem("Alpha", "/alpha")

	model.StartItem(1, 1, item)
	assert.Equal(t, ItemFetching, model.Rows()[0].State)

	model.FinishItem(models.FetchAttempt{Item: item, Outcome: models.OutcomeSkipped})
	assert.Equal(t, ItemSkipped, model.Rows()[0].State)
	assert.Equal(t, 1.0, model.Fraction())
}

func TestModelUpdate(t *testing.T) {
	model := NewModel("ada")
	item := models.NewItem("Alpha", "/alpha")

	model.Update(PhaseMsg{Phase: "LISTING"})
	model.Update(ItemStartMsg{Index: 1, Total: 1, Item: item})
	model.Update(ItemDoneMsg{Attempt: models.FetchAttempt{Item: item, Outcome: models.OutcomeFailure, FaultReason: "timeout"}})
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, "LISTING", model.phase)
	require.Len(t, model.logMessages, 1)
	assert.Equal(t, "ERROR", model.logMessages[0].Level)
	assert.Contains(t, model.logMessages[0].Message, "timeout")

	view := model.View()
	assert.Contains(t, view, "Alpha")
	assert.Contains(t, view, "@ada")
}

func TestModelQuitStopsRun(t *testing.T) {
	stopped := false
	model := NewModel("ada")
	model.quit = func() { stopped = true }

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, stopped)
	assert.NotNil(t, cmd)
}

func TestModelLogTrimmed(t *testing.T) {
	model := NewModel("ada")
	for i := 0; i < 60; i++ {
		model.AddLogMessage("INFO", "event")
	}
	assert.Len(t, model.logMessages, 50)
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Initializing...", NewModel("ada").View())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:45", FormatDuration(45*time.Second))
	assert.Equal(t, "02:05", FormatDuration(125*time.Second))
	assert.Equal(t, "01:01:01", FormatDuration(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "00:00", FormatDuration(-time.Second))
}

func TestItemStateString(t *testing.T) {
	assert.Equal(t, "pending", ItemPending.String())
	assert.Equal(t, "skipped", ItemSkipped.String())
}

func TestLogBeforeStartLandsInModel(t *testing.T) {
	dashboard := NewTUI("ada", func() {})
	dashboard.Log("WARN", "Manifest unavailable: %s", "read-only home")

	require.Len(t, dashboard.model.logMessages, 1)
	assert.Equal(t, "WARN", dashboard.model.logMessages[0].Level)
	assert.Equal(t, "Manifest unavailable: read-only home", dashboard.model.logMessages[0].Message)
}
