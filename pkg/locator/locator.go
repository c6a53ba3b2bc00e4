// Package locator finds elements in the remote view with a bounded number of
// probes, waiting a constant backoff between them.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/logger"
	"replharvest/pkg/remote"
	"replharvest/pkg/retry"
	"replharvest/pkg/selector"
)

// Defaults used when a Locator is built with zero values
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
	DefaultBackoff = time.Second
)

// Locator wraps remote lookups in a retry loop
type Locator struct {
	selectors *selector.Map
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	log       logger.Logger
}

// Option customises a Locator
type Option func(*Locator)

// WithTimeout sets the per-probe timeout used by Find
func WithTimeout(d time.Duration) Option { return func(l *Locator) { l.timeout = d } }

// WithRetries sets the probe count used by Find
func WithRetries(n int) Option { return func(l *Locator) { l.retries = n } }

// WithBackoff sets the wait between probes
func WithBackoff(d time.Duration) Option { return func(l *Locator) { l.backoff = d } }

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option { return func(l *Locator) { l.log = log } }

// New creates a Locator resolving intents through selectors
func New(selectors *selector.Map, opts ...Option) *Locator {
	l := &Locator{
		selectors: selectors,
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		log:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.selectors == nil {
		l.selectors = selector.Default()
	}
	return l
}

// Selectors returns the intent map in use
func (l *Locator) Selectors() *selector.Map { return l.selectors }

// Locate runs up to retries probes of timeout each, sleeping the backoff
// through r between failures (never after the last). Exhaustion yields a
// not_found error; cancellation is returned as is.
func (l *Locator) Locate(ctx context.Context, r remote.Remote, sel selector.Selector, timeout time.Duration, retries int) (remote.Element, error) {
	if retries < 1 {
		retries = 1
	}

	el, err := retry.DoWithResult(ctx, func(ctx context.Context, attempt int) (remote.Element, error) {
		return r.Locate(ctx, sel, timeout)
	}, &retry.Config{
		MaxAttempts: retries,
		Backoff:     &retry.ConstantBackoff{Delay: l.backoff},
		RetryIf:     retryable,
		Sleep:       r.Sleep,
		Logger:      l.log.WithField("selector", sel.String()),
	})
	if err == nil {
		return el, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, errs.NotFound("locate", fmt.Sprintf("%s after %d probes", sel, retries), err)
}

// Find resolves intent and locates it with the configured timeout and retries
func (l *Locator) Find(ctx context.Context, r remote.Remote, intent selector.Intent) (remote.Element, error) {
	return l.FindWith(ctx, r, intent, l.timeout, l.retries)
}

// FindWith resolves intent and locates it with explicit bounds
func (l *Locator) FindWith(ctx context.Context, r remote.Remote, intent selector.Intent, timeout time.Duration, retries int) (remote.Element, error) {
	sel, err := l.selectors.Resolve(intent)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeConfig, "locate", string(intent), err)
	}
	el, err := l.Locate(ctx, r, sel, timeout, retries)
	if err != nil {
		var typed *errs.Error
		if errors.As(err, &typed) {
			typed.Message = string(intent) + ": " + typed.Message
		}
		return nil, err
	}
	return el, nil
}

// Probe is a single lookup with no retry, used for optional elements
func (l *Locator) Probe(ctx context.Context, r remote.Remote, intent selector.Intent, timeout time.Duration) (remote.Element, bool, error) {
	el, err := l.FindWith(ctx, r, intent, timeout, 1)
	if err == nil {
		return el, true, nil
	}
	if errs.TypeOf(err) == errs.ErrorTypeNotFound {
		return nil, false, nil
	}
	return nil, false, err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
