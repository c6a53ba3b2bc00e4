package scraper

import (
	"context"
	"sync"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/logger"
	"replharvest/pkg/models"
	"replharvest/pkg/session"
)

// State is a step of the run lifecycle
type State string

const (
	StateInit           State = "INIT"
	StateAuthenticating State = "AUTHENTICATING"
	StateAuthenticated  State = "AUTHENTICATED"
	StateListing        State = "LISTING"
	StateFetchingItem   State = "FETCHING_ITEM"
	StateDone           State = "DONE"
	StateCleanup        State = "CLEANUP"
)

// Result is what a run produced; Report is nil for dry runs or early failures
type Result struct {
	Inventory *models.Inventory
	Report    *models.FetchReport
}

// Scraper drives one complete run: login, discovery, fetch, teardown
type Scraper struct {
	open         RemoteFactory
	auth         Authenticator
	lister       InventoryLister
	orchestrator *Orchestrator
	dryRun       bool
	observe      func(State)
	log          logger.Logger

	mu      sync.Mutex
	state   State
	history []State
	session *session.Session
}

// New wires a scraper from its collaborators
func New(open RemoteFactory, auth Authenticator, lister InventoryLister, orchestrator *Orchestrator, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.NewNopLogger()
	}
	sc := &Scraper{
		open:         open,
		auth:         auth,
		lister:       lister,
		orchestrator: orchestrator,
		log:          log.WithField("component", "scraper"),
	}
	if orchestrator != nil {
		orchestrator.WithItemHook(func(models.Item) { sc.transition(StateFetchingItem) })
	}
	return sc
}

// SetDryRun stops the run after discovery
func (sc *Scraper) SetDryRun(v bool) { sc.dryRun = v }

// WithStateObserver calls fn after every lifecycle transition
func (sc *Scraper) WithStateObserver(fn func(State)) *Scraper {
	sc.observe = fn
	return sc
}

// State returns the current lifecycle state
func (sc *Scraper) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// History returns every state the run passed through
func (sc *Scraper) History() []State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]State(nil), sc.history...)
}

// Session returns the run's session once it exists
func (sc *Scraper) Session() *session.Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.session
}

func (sc *Scraper) transition(to State) {
	sc.mu.Lock()
	from := sc.state
	sc.state = to
	sc.history = append(sc.history, to)
	sc.mu.Unlock()

	logger.LogStateTransition(sc.log, string(from), string(to))
	if sc.observe != nil {
		sc.observe(to)
	}
}

// Run executes the lifecycle. The session is closed on every exit path.
// Fatal errors move the run to CLEANUP and are returned with whatever was
// produced so far.
func (sc *Scraper) Run(ctx context.Context, creds session.Credentials) (result *Result, err error) {
	result = &Result{}
	sc.transition(StateInit)

	defer func() {
		if err != nil {
			sc.transition(StateCleanup)
		}
	}()

	r, err := sc.open(ctx)
	if err != nil {
		return result, errs.New(errs.ErrorTypeUnknown, "open", "starting browser", err)
	}
	s := session.New(r)
	sc.mu.Lock()
	sc.session = s
	sc.mu.Unlock()

	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			sc.log.WithError(closeErr).Warn("Failed to close browser session")
		}
	}()

	sc.transition(StateAuthenticating)
	if err := sc.auth.Authenticate(ctx, s, creds); err != nil {
		return result, err
	}
	sc.transition(StateAuthenticated)

	sc.transition(StateListing)
	inv, err := sc.lister.List(ctx, s)
	if err != nil {
		return result, err
	}
	result.Inventory = inv
	sc.log.WithField("items", inv.Len()).Info("Inventory discovered")

	if sc.dryRun {
		sc.transition(StateDone)
		return result, nil
	}

	report, err := sc.orchestrator.Run(ctx, s, inv)
	result.Report = report
	if err != nil {
		return result, err
	}

	sc.transition(StateDone)
	return result, nil
}
