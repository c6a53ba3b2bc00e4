package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/models"
)

func init() {
	SetColor(false)
}

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func sampleReport() *models.FetchReport {
	start := time.Now().Add(-90 * time.Second)
	report := &models.FetchReport{RunID: "run", StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	report.Record(models.FetchAttempt{Item: models.NewItem("Alpha", "/a"), Outcome: models.OutcomeSuccess})
	report.Record(models.FetchAttempt{Item: models.NewItem("Beta", "/b"), Outcome: models.OutcomeSkipped})
	report.Record(models.FetchAttempt{Item: models.NewItem("Gamma", "/g"), Outcome: models.OutcomeFailure, RetryCount: 2, FaultReason: "export-action not found"})
	return report
}

func TestBar(t *testing.T) {
	assert.Equal(t, "██████████", Bar(5, 5, 10))
	assert.Equal(t, "█████░░░░░", Bar(1, 2, 10))
	assert.Equal(t, "░░░░", Bar(0, 0, 4))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "2/3 in 1m30s")
	assert.Contains(t, out, "fetched  1")
	assert.Contains(t, out, "failed   1")
	assert.Contains(t, out, "Gamma (2 retries): export-action not found")
	assert.NotContains(t, out, "Alpha (")
}

func TestPrintInventory(t *testing.T) {
	inv := models.NewInventory()
	inv.Add(models.NewItem("Alpha", "https://replit.test/@ada/Alpha"))

	var buf bytes.Buffer
	PrintInventory(&buf, inv)
	assert.Contains(t, buf.String(), "1 repls")
	assert.Contains(t, buf.String(), "1. Alpha https://replit.test/@ada/Alpha")
}

func TestProgressDisplay(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "ada", true)

	for i, a := range sampleReport().Attempts {
		p.ItemStarted(i+1, 3, a.Item)
		p.ItemFinished(i+1, 3, a)
	}
	p.Complete()

	fetched, skipped, failed := p.Totals()
	assert.Equal(t, []int{1, 1, 1}, []int{fetched, skipped, failed})

	out := buf.String()
	assert.Contains(t, out, "→ [1/3] Alpha")
	assert.Contains(t, out, "↷ [2/3] Beta • already downloaded")
	assert.Contains(t, out, "✗ [3/3] Gamma • export-action not found")
	assert.Contains(t, out, "Fetched 1 repls from @ada")
}

func TestProgressDisplayQuietStart(t *testing.T) {
	var buf bytes.Buffer
	NewProgressDisplay(&buf, "ada", false).ItemStarted(1, 1, models.NewItem("Alpha", "/a"))
	assert.Empty(t, buf.String())
}

func TestNotifierReport(t *testing.T) {
	sender := &recordingSender{err: errors.New("no notify-send")}
	var buf bytes.Buffer
	n := NewNotifierWithSender(sender, &buf)

	n.NotifyReport("ada", sampleReport())
	require.Len(t, sender.titles, 1)
	assert.Equal(t, "Harvest finished with failures", sender.titles[0])
	assert.Contains(t, buf.String(), "@ada: 1 fetched, 1 skipped, 1 failed")

	clean := &models.FetchReport{}
	clean.Record(models.FetchAttempt{Outcome: models.OutcomeSuccess})
	n.NotifyReport("ada", clean)
	assert.Equal(t, "Harvest complete", sender.titles[1])

	n.NotifyReport("ada", nil)
	assert.Len(t, sender.titles, 2)
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "a &amp; &lt;b&gt;", xmlEscape("a & <b>"))
}

func TestColorDisabled(t *testing.T) {
	assert.Equal(t, "plain", Red("plain"))
}
