package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replharvest/pkg/models"
	"replharvest/pkg/remote/remotetest"
	"replharvest/pkg/session"
	"replharvest/pkg/storage"
)

const listing = "https://replit.test/@ada"

// scriptedFetcher returns outcomes per identity key; the last outcome repeats
type scriptedFetcher struct {
	mu       sync.Mutex
	outcomes map[string][]models.Outcome
	calls    map[string]int
	before   func(item models.Item, call int)
}

func newScriptedFetcher(outcomes map[string][]models.Outcome) *scriptedFetcher {
	return &scriptedFetcher{outcomes: outcomes, calls: map[string]int{}}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, s *session.Session, item models.Item) models.FetchAttempt {
	f.mu.Lock()
	f.calls[item.IdentityKey]++
	call := f.calls[item.IdentityKey]
	seq := f.outcomes[item.IdentityKey]
	f.mu.Unlock()

	if f.before != nil {
		f.before(item, call)
	}

	outcome := models.OutcomeSuccess
	if len(seq) > 0 {
		idx := call - 1
		if idx >= len(seq) {
			idx = len(seq) - 1
		}
		outcome = seq[idx]
	}
	a := models.FetchAttempt{Item: item, Outcome: outcome}
	if outcome == models.OutcomeFailure {
		a.FaultReason = "export-action not found"
	}
	return a
}

func (f *scriptedFetcher) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type resumeSet map[string]bool

func (r resumeSet) AlreadyFetched(item models.Item) (bool, error) {
	return r[item.IdentityKey], nil
}

type recordingManifest struct{ keys []string }

func (m *recordingManifest) RecordCompleted(item models.Item) error {
	m.keys = append(m.keys, item.IdentityKey)
	return nil
}

type recordingProgress struct{ finished []models.Outcome }

func (p *recordingProgress) ItemStarted(index, total int, item models.Item) {}
func (p *recordingProgress) ItemFinished(index, total int, a models.FetchAttempt) {
	p.finished = append(p.finished, a.Outcome)
}

func inventory(names ...string) *models.Inventory {
	inv := models.NewInventory()
	for _, n := range names {
		inv.Add(models.NewItem(n, listing+"/"+n))
	}
	return inv
}

func newOrchestrator(resume ResumeChecker, f ItemFetcher) *Orchestrator {
	return NewOrchestrator(resume, f, OrchestratorOptions{
		ListingURL:     listing,
		FetchAttempts:  3,
		InterItemDelay: 2 * time.Second,
		RunID:          "run-1",
	}, nil)
}

func TestRunIsolatesFailures(t *testing.T) {
	view := remotetest.New()
	s := session.New(view)
	f := newScriptedFetcher(map[string][]models.Outcome{
		"beta": {models.OutcomeFailure},
	})
	manifest := &recordingManifest{}
	progress := &recordingProgress{}

	report, err := newOrchestrator(resumeSet{}, f).
		WithManifest(manifest).
		WithProgress(progress).
		Run(context.Background(), s, inventory("Alpha", "Beta", "Gamma"))
	require.NoError(t, err)

	require.Len(t, report.Attempts, 3)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, models.OutcomeSuccess, report.Attempts[0].Outcome)
	assert.Equal(t, models.OutcomeFailure, report.Attempts[1].Outcome)
	assert.Equal(t, 2, report.Attempts[1].RetryCount)
	assert.Contains(t, report.Attempts[1].FaultReason, "export-action")
	assert.Equal(t, models.OutcomeSuccess, report.Attempts[2].Outcome)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())

	assert.Equal(t, 3, f.Calls("beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, manifest.keys)
	assert.Equal(t, []models.Outcome{models.OutcomeSuccess, models.OutcomeFailure, models.OutcomeSuccess}, progress.finished)

	// listing after alpha, twice between beta attempts, after beta, after gamma
	assert.Equal(t, []string{listing, listing, listing, listing, listing}, s.History())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, view.Slept())
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	s := session.New(remotetest.New())
	f := newScriptedFetcher(map[string][]models.Outcome{
		"alpha": {models.OutcomeFailure, models.OutcomeSuccess},
	})

	report, err := newOrchestrator(resumeSet{}, f).Run(context.Background(), s, inventory("Alpha"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, report.Attempts[0].Outcome)
	assert.Equal(t, 1, report.Attempts[0].RetryCount)
	assert.Equal(t, 2, f.Calls("alpha"))
}

func TestRunSkipsExistingArtifacts(t *testing.T) {
	view := remotetest.New()
	s := session.New(view)
	f := newScriptedFetcher(nil)

	report, err := newOrchestrator(resumeSet{"alpha": true}, f).Run(context.Background(), s, inventory("Alpha", "Beta"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSkipped, report.Attempts[0].Outcome)
	assert.Equal(t, models.OutcomeSuccess, report.Attempts[1].Outcome)
	assert.Zero(t, f.Calls("alpha"))
	// only beta restores the listing and waits
	assert.Equal(t, []string{listing}, s.History())
	assert.Len(t, view.Slept(), 1)
}

func TestRunSecondPassSkipsEverything(t *testing.T) {
	s := session.New(remotetest.New())
	f := newScriptedFetcher(nil)
	done := resumeSet{"alpha": true, "beta": true}

	report, err := newOrchestrator(done, f).Run(context.Background(), s, inventory("Alpha", "Beta"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped())
	assert.Zero(t, f.Calls("alpha")+f.Calls("beta"))
	assert.Empty(t, s.History())
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := session.New(remotetest.New())
	f := newScriptedFetcher(map[string][]models.Outcome{"beta": {models.OutcomeFailure}})
	f.before = func(item models.Item, call int) {
		if item.IdentityKey == "beta" {
			cancel()
		}
	}

	report, err := newOrchestrator(resumeSet{}, f).Run(ctx, s, inventory("Alpha", "Beta", "Gamma"))

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, models.OutcomeFailure, report.Attempts[1].Outcome)
	assert.Equal(t, 1, f.Calls("beta"))
	assert.Zero(t, f.Calls("gamma"))
}

type failingResume struct{}

func (failingResume) AlreadyFetched(models.Item) (bool, error) {
	return false, errors.New("permission denied")
}

func TestRunResumeErrorStillFetches(t *testing.T) {
	f := newScriptedFetcher(nil)
	report, err := newOrchestrator(failingResume{}, f).Run(context.Background(), session.New(remotetest.New()), inventory("Alpha"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded())
}

func TestRunEmptyInventory(t *testing.T) {
	report, err := newOrchestrator(resumeSet{}, newScriptedFetcher(nil)).Run(context.Background(), session.New(remotetest.New()), models.NewInventory())

	require.NoError(t, err)
	assert.Empty(t, report.Attempts)
}

func TestRunTwiceAgainstDestinationDirectory(t *testing.T) {
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	// every successful export leaves a zip named the way the site names it
	// blog fails all three attempts of the first run and works afterwards
	f := newScriptedFetcher(map[string][]models.Outcome{
		"blog": {models.OutcomeFailure, models.OutcomeFailure, models.OutcomeFailure, models.OutcomeSuccess},
	})
	f.before = func(item models.Item, call int) {
		if item.IdentityKey == "blog" && call <= 3 {
			return
		}
		name := strings.ReplaceAll(item.DisplayName, " ", "-") + ".zip"
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), name), []byte("PK"), 0644))
	}
	items := func() *models.Inventory { return inventory("Todo App", "Chat", "Blog") }

	first, err := newOrchestrator(store, f).Run(context.Background(), session.New(remotetest.New()), items())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Succeeded())
	assert.Equal(t, 1, first.Failed())

	// a partial download must not count as fetched
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "Blog.zip.crdownload"), nil, 0644))
	second, err := newOrchestrator(store, f).Run(context.Background(), session.New(remotetest.New()), items())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Skipped())
	assert.Equal(t, 1, second.Succeeded())
	assert.Equal(t, 1, f.Calls("todoapp"))
	assert.Equal(t, 1, f.Calls("chat"))

	// everything is on disk now; nothing is fetched
	before := f.Calls("todoapp") + f.Calls("chat") + f.Calls("blog")
	third, err := newOrchestrator(store, f).Run(context.Background(), session.New(remotetest.New()), items())
	require.NoError(t, err)
	assert.Equal(t, 3, third.Skipped())
	assert.Equal(t, before, f.Calls("todoapp")+f.Calls("chat")+f.Calls("blog"))
}
