// Package lister discovers every item behind the infinite-scroll listing by
// scrolling until the page extent stops growing.
package lister

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/locator"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
	"replharvest/pkg/session"
)

const (
	// ScrollScript moves the listing to its current bottom
	ScrollScript = `() => window.scrollTo(0, document.body.scrollHeight)`
	// ExtentScript reports the scrollable height of the page
	ExtentScript = `() => document.body.scrollHeight`
)

// Options configures discovery
type Options struct {
	ListingURL       string
	SettleDelay      time.Duration
	ContainerTimeout time.Duration
	// MaxPasses stops a listing that never reaches a fixed point
	MaxPasses int
}

// Lister walks the listing page
type Lister struct {
	locator *locator.Locator
	opts    Options
	log     logger.Logger
}

// New creates a lister
func New(loc *locator.Locator, opts Options, log logger.Logger) *Lister {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	if opts.ContainerTimeout <= 0 {
		opts.ContainerTimeout = 10 * time.Second
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 500
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Lister{locator: loc, opts: opts, log: log.WithField("component", "lister")}
}

// ListingURL returns the page the lister reads
func (l *Lister) ListingURL() string { return l.opts.ListingURL }

// List returns every distinct item found. An empty inventory is valid; a
// listing container that never appears is a discovery error.
func (l *Lister) List(ctx context.Context, s *session.Session) (*models.Inventory, error) {
	r := s.Remote()

	if err := s.Navigate(ctx, l.opts.ListingURL); err != nil {
		return nil, errs.Discovery("navigate", l.opts.ListingURL, err)
	}
	if _, err := l.locator.FindWith(ctx, r, selector.ListingContainer, l.opts.ContainerTimeout, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Discovery("list", "listing container never appeared", err)
	}

	inv := models.NewInventory()
	skipped := make(map[string]bool)
	prev, prevOK := l.extent(ctx, r)

	for pass := 1; ; pass++ {
		added, err := l.collect(ctx, r, inv, skipped)
		if err != nil {
			return nil, err
		}
		l.log.WithField("added", added).Debug("Collected listing items")

		if _, err := r.EvaluateScript(ctx, ScrollScript); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.log.WithError(err).Warn("Scroll script failed; treating listing as complete")
			break
		}
		if err := r.Sleep(ctx, l.opts.SettleDelay); err != nil {
			return nil, err
		}

		cur, ok := l.extent(ctx, r)
		logger.LogDiscoveryProgress(l.log, pass, inv.Len(), cur)
		if !ok {
			l.log.Warn("Listing extent unreadable; treating listing as complete")
			break
		}
		if prevOK && cur == prev {
			break
		}
		prev, prevOK = cur, true

		if pass >= l.opts.MaxPasses {
			l.log.WithField("passes", pass).Warn("Listing still growing at pass limit; stopping discovery")
			break
		}
	}

	// Items rendered by the last scroll
	if _, err := l.collect(ctx, r, inv, skipped); err != nil {
		return nil, err
	}

	l.log.WithFields(map[string]interface{}{
		"items":   inv.Len(),
		"skipped": len(skipped),
	}).Info("Listing complete")
	return inv, nil
}

// collect merges the currently rendered items into inv. Names that fold to an
// empty identity are recorded in skipped and warned about once.
func (l *Lister) collect(ctx context.Context, r remote.Remote, inv *models.Inventory, skipped map[string]bool) (int, error) {
	sels := l.locator.Selectors()
	itemSel, err := sels.Resolve(selector.ListingItem)
	if err != nil {
		return 0, errs.New(errs.ErrorTypeConfig, "list", "listing item selector", err)
	}
	nameSel, err := sels.Resolve(selector.ListingItemName)
	if err != nil {
		return 0, errs.New(errs.ErrorTypeConfig, "list", "listing item name selector", err)
	}
	linkSel, err := sels.Resolve(selector.ListingItemLink)
	if err != nil {
		return 0, errs.New(errs.ErrorTypeConfig, "list", "listing item link selector", err)
	}

	rows, err := r.LocateAll(ctx, itemSel)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, errs.Discovery("list", "reading listing items", err)
	}

	added := 0
	for _, row := range rows {
		item, ok := l.describe(ctx, row, nameSel, linkSel)
		if !ok {
			if item.DisplayName != "" && !skipped[item.DisplayName] {
				skipped[item.DisplayName] = true
				l.log.WithField("item", item.DisplayName).Warn("Skipping item whose name has no usable identity")
			}
			continue
		}
		if inv.Add(item) {
			added++
		}
	}
	return added, nil
}

// describe reads one rendered row. A row is unusable when its name is missing
// or folds to an empty identity; the latter still carries its display name.
func (l *Lister) describe(ctx context.Context, row remote.Element, nameSel, linkSel selector.Selector) (models.Item, bool) {
	nameEl, err := row.Find(ctx, nameSel)
	if err != nil {
		return models.Item{}, false
	}
	name, err := nameEl.Text(ctx)
	if err != nil {
		return models.Item{}, false
	}
	name = strings.TrimSpace(name)

	item := models.NewItem(name, "")
	if item.IdentityKey == "" {
		return models.Item{DisplayName: name}, false
	}

	href := ""
	if linkEl, err := row.Find(ctx, linkSel); err == nil {
		if v, ok, err := linkEl.Attribute(ctx, "href"); err == nil && ok {
			href = v
		}
	}
	item.NavigationTarget = ResolveTarget(l.opts.ListingURL, href, name)
	return item, true
}

// ResolveTarget turns an item link into an absolute URL. A missing link falls
// back to the listing URL plus the escaped name.
func ResolveTarget(listingURL, href, name string) string {
	base, err := url.Parse(listingURL)
	if err != nil {
		return href
	}
	if href != "" {
		ref, err := url.Parse(href)
		if err == nil {
			return base.ResolveReference(ref).String()
		}
	}
	return strings.TrimRight(listingURL, "/") + "/" + url.PathEscape(name)
}

// extent reads the scroll height; ok is false when the value is unusable
func (l *Lister) extent(ctx context.Context, r remote.Remote) (float64, bool) {
	v, err := r.EvaluateScript(ctx, ExtentScript)
	if err != nil {
		l.log.WithError(err).Debug("Extent script failed")
		return 0, false
	}
	f, err := toFloat(v)
	if err != nil {
		l.log.WithError(err).Debug("Extent not numeric")
		return 0, false
	}
	return f, true
}

var errNotNumeric = errors.New("not numeric")

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%T: %w", v, errNotNumeric)
	}
}
