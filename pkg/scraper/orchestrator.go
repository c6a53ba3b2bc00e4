package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	errs "replharvest/pkg/errors"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
	"replharvest/pkg/retry"
	"replharvest/pkg/session"
)

// OrchestratorOptions configures the fetch loop
type OrchestratorOptions struct {
	// ListingURL is restored between attempts and after every fetched item
	ListingURL     string
	FetchAttempts  int
	InterItemDelay time.Duration
	// RunID labels the report; a new uuid is used when empty
	RunID string
}

// Orchestrator fetches each inventory item at most once per run
type Orchestrator struct {
	resume   ResumeChecker
	fetcher  ItemFetcher
	manifest ManifestRecorder
	progress Progress
	onItem   func(models.Item)
	opts     OrchestratorOptions
	log      logger.Logger
}

// NewOrchestrator creates the fetch loop
func NewOrchestrator(resume ResumeChecker, fetcher ItemFetcher, opts OrchestratorOptions, log logger.Logger) *Orchestrator {
	if opts.FetchAttempts < 1 {
		opts.FetchAttempts = 3
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Orchestrator{
		resume:  resume,
		fetcher: fetcher,
		opts:    opts,
		log:     log.WithField("component", "orchestrator"),
	}
}

// WithManifest records successes in m
func (o *Orchestrator) WithManifest(m ManifestRecorder) *Orchestrator {
	o.manifest = m
	return o
}

// WithProgress reports per-item progress to p
func (o *Orchestrator) WithProgress(p Progress) *Orchestrator {
	o.progress = p
	return o
}

// WithItemHook calls fn before each item that is actually fetched
func (o *Orchestrator) WithItemHook(fn func(models.Item)) *Orchestrator {
	o.onItem = fn
	return o
}

// Run walks inv in discovery order. Per-item failures are recorded and the
// loop moves on; only cancellation stops it early, in which case the partial
// report is returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context, s *session.Session, inv *models.Inventory) (*models.FetchReport, error) {
	runID := o.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &models.FetchReport{RunID: runID, StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	items := inv.Items()
	total := len(items)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if o.progress != nil {
			o.progress.ItemStarted(i+1, total, item)
		}

		done, err := o.resume.AlreadyFetched(item)
		if err != nil {
			o.log.WithError(err).WithField("item", item.DisplayName).Warn("Resume check failed; fetching anyway")
		}
		if done {
			o.finish(report, i+1, total, models.FetchAttempt{Item: item, Outcome: models.OutcomeSkipped})
			continue
		}

		if o.onItem != nil {
			o.onItem(item)
		}

		attempt, err := o.fetchWithRetry(ctx, s, item)
		o.finish(report, i+1, total, attempt)
		if err != nil {
			return report, err
		}

		if attempt.Outcome == models.OutcomeSuccess && o.manifest != nil {
			if err := o.manifest.RecordCompleted(item); err != nil {
				o.log.WithError(err).Warn("Failed to update manifest")
			}
		}

		if err := s.Navigate(ctx, o.opts.ListingURL); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			o.log.WithError(err).Warn("Could not return to the listing")
		}
		if err := s.Remote().Sleep(ctx, o.opts.InterItemDelay); err != nil {
			return report, err
		}
	}

	return report, nil
}

// fetchWithRetry returns the final attempt; err is only set on cancellation
func (o *Orchestrator) fetchWithRetry(ctx context.Context, s *session.Session, item models.Item) (models.FetchAttempt, error) {
	var last models.FetchAttempt
	attempts := 0

	err := retry.Do(ctx, func(ctx context.Context, n int) error {
		if n > 1 {
			if err := s.Navigate(ctx, o.opts.ListingURL); err != nil {
				o.log.WithError(err).Debug("Could not restore listing before retry")
			}
		}
		attempts = n
		last = o.fetcher.Fetch(ctx, s, item)
		if last.Outcome == models.OutcomeSuccess {
			return nil
		}
		return errs.FetchFailure("fetch", item.DisplayName, fmt.Errorf("%s", last.FaultReason))
	}, &retry.Config{
		MaxAttempts: o.opts.FetchAttempts,
		Sleep:       s.Remote().Sleep,
		Logger:      o.log,
	})

	if attempts == 0 {
		last = models.FetchAttempt{Item: item, Outcome: models.OutcomeFailure}
	}
	last.Item = item
	if attempts > 0 {
		last.RetryCount = attempts - 1
	}

	if ctxErr := ctx.Err(); ctxErr != nil && last.Outcome != models.OutcomeSuccess {
		last.Outcome = models.OutcomeFailure
		if last.FaultReason == "" {
			last.FaultReason = ctxErr.Error()
		}
		return last, ctxErr
	}
	if err != nil && last.Outcome == models.OutcomeSuccess {
		last.Outcome = models.OutcomeFailure
		last.FaultReason = err.Error()
	}
	return last, nil
}

func (o *Orchestrator) finish(report *models.FetchReport, index, total int, attempt models.FetchAttempt) {
	report.Record(attempt)

	var fault error
	if attempt.Outcome == models.OutcomeFailure {
		fault = fmt.Errorf("%s", attempt.FaultReason)
	}
	tries := attempt.RetryCount + 1
	if attempt.Outcome == models.OutcomeSkipped {
		tries = 0
	}
	logger.LogItemOutcome(o.log, attempt.Item.IdentityKey, attempt.Item.DisplayName, string(attempt.Outcome), tries, fault)

	if o.progress != nil {
		o.progress.ItemFinished(index, total, attempt)
	}
}
