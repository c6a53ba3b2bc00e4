// Package fetcher drives the export of a single item: open its workspace,
// open the actions menu and trigger the archive download.
package fetcher

import (
	"context"
	"time"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/locator"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
	"replharvest/pkg/session"
)

// Options configures the fetch flow
type Options struct {
	// ViewTimeout bounds the wait for the item workspace to render
	ViewTimeout time.Duration
	// ProbeTimeout bounds the single look for the actions menu before the side panel is opened
	ProbeTimeout time.Duration
}

// Fetcher performs one export attempt per call
type Fetcher struct {
	locator *locator.Locator
	settler Settler
	opts    Options
	log     logger.Logger
}

// New creates a fetcher; a nil settler means a 5 s SleepSettler
func New(loc *locator.Locator, settler Settler, opts Options, log logger.Logger) *Fetcher {
	if settler == nil {
		settler = SleepSettler{Delay: 5 * time.Second}
	}
	if opts.ViewTimeout <= 0 {
		opts.ViewTimeout = 15 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 2 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Fetcher{locator: loc, settler: settler, opts: opts, log: log.WithField("component", "fetcher")}
}

// Fetch makes one attempt at exporting item. Faults never escape: they are
// reported as a failed attempt carrying the fault text.
func (f *Fetcher) Fetch(ctx context.Context, s *session.Session, item models.Item) models.FetchAttempt {
	start := time.Now()
	attempt := models.FetchAttempt{Item: item, Outcome: models.OutcomeSuccess}

	if err := f.export(ctx, s, item); err != nil {
		attempt.Outcome = models.OutcomeFailure
		attempt.FaultReason = err.Error()
		f.log.WithFields(map[string]interface{}{
			"item": item.DisplayName,
			"key":  item.IdentityKey,
		}).WithError(err).Debug("Fetch attempt failed")
	}
	attempt.Duration = time.Since(start)
	return attempt
}

func (f *Fetcher) export(ctx context.Context, s *session.Session, item models.Item) error {
	r := s.Remote()

	if err := s.Navigate(ctx, item.NavigationTarget); err != nil {
		return err
	}
	if _, err := f.locator.FindWith(ctx, r, selector.ItemViewReady, f.opts.ViewTimeout, locator.DefaultRetries); err != nil {
		return err
	}

	more, err := f.revealActions(ctx, r)
	if err != nil {
		return err
	}
	if err := r.Act(ctx, more, remote.Click()); err != nil {
		return errs.FetchFailure("click", string(selector.MoreActions), err)
	}

	export, err := f.locator.Find(ctx, r, selector.ExportAction)
	if err != nil {
		return err
	}

	wait, err := f.settler.Arm()
	if err != nil {
		return errs.FetchFailure("settle", "preparing download wait", err)
	}
	if err := r.Act(ctx, export, remote.Click()); err != nil {
		return errs.FetchFailure("click", string(selector.ExportAction), err)
	}
	if err := wait(ctx, r); err != nil {
		return errs.FetchFailure("settle", "waiting for download", err)
	}
	return nil
}

// revealActions finds the actions menu, opening the side panel first when the
// menu is hidden behind it
func (f *Fetcher) revealActions(ctx context.Context, r remote.Remote) (remote.Element, error) {
	more, ok, err := f.locator.Probe(ctx, r, selector.MoreActions, f.opts.ProbeTimeout)
	if err != nil {
		return nil, err
	}
	if ok {
		return more, nil
	}

	toggle, err := f.locator.Find(ctx, r, selector.SidePanelToggle)
	if err != nil {
		return nil, err
	}
	if err := r.Act(ctx, toggle, remote.Click()); err != nil {
		return nil, errs.FetchFailure("click", string(selector.SidePanelToggle), err)
	}
	return f.locator.Find(ctx, r, selector.MoreActions)
}
