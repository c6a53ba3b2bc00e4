package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/locator"
	"replharvest/pkg/logger"
	"replharvest/pkg/pacing"
	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
)

// Credentials identify the account; they live only for one Authenticate call
type Credentials struct {
	Login    string
	Password string
}

// Options configures the login flow
type Options struct {
	LoginURL     string
	LoginTimeout time.Duration
	// Keystroke paces individual characters, FieldPause the gap between fields
	Keystroke  pacing.Pacer
	FieldPause pacing.Pacer
}

// Manager performs the login flow
type Manager struct {
	locator *locator.Locator
	opts    Options
	log     logger.Logger
}

// NewManager creates a login manager
func NewManager(loc *locator.Locator, opts Options, log logger.Logger) *Manager {
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = 30 * time.Second
	}
	if opts.Keystroke == nil {
		opts.Keystroke = pacing.NewJitter(50*time.Millisecond, 150*time.Millisecond)
	}
	if opts.FieldPause == nil {
		opts.FieldPause = pacing.NewJitter(500*time.Millisecond, 1500*time.Millisecond)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{locator: loc, opts: opts, log: log.WithField("component", "session")}
}

// Authenticate logs in through the view. Every failure is an auth error.
func (m *Manager) Authenticate(ctx context.Context, s *Session, creds Credentials) error {
	if creds.Login == "" || creds.Password == "" {
		return errs.Auth("authenticate", "login and password are required", nil)
	}

	r := s.Remote()
	if err := s.Navigate(ctx, m.opts.LoginURL); err != nil {
		return errs.Auth("navigate", "login page unreachable", err)
	}

	steps := []struct {
		intent selector.Intent
		text   string
	}{
		{selector.LoginUsernameField, creds.Login},
		{selector.LoginPasswordField, creds.Password},
	}
	for _, step := range steps {
		field, err := m.locator.Find(ctx, r, step.intent)
		if err != nil {
			return errs.Auth("locate", string(step.intent), err)
		}
		if err := m.typeSlowly(ctx, r, field, step.text); err != nil {
			return errs.Auth("type", string(step.intent), err)
		}
		if err := r.Sleep(ctx, m.opts.FieldPause.Next()); err != nil {
			return errs.Auth("type", "interrupted", err)
		}
	}

	submit, err := m.locator.Find(ctx, r, selector.LoginSubmit)
	if err != nil {
		return errs.Auth("locate", string(selector.LoginSubmit), err)
	}
	if err := r.Act(ctx, submit, remote.Click()); err != nil {
		return errs.Auth("submit", "click failed", err)
	}

	loginPath := pathOf(m.opts.LoginURL)
	err = r.WaitUntil(ctx, func(ctx context.Context) (bool, error) {
		loc, err := r.CurrentLocation(ctx)
		if err != nil {
			return false, err
		}
		return pathOf(loc) != loginPath, nil
	}, m.opts.LoginTimeout)
	if err != nil {
		if errors.Is(err, remote.ErrTimeout) {
			return errs.Auth("submit", "still on the login page; check credentials", err)
		}
		return errs.Auth("submit", "waiting for landing page", err)
	}

	s.setAuthenticated(true)
	m.log.Info("Logged in")
	return nil
}

// typeSlowly sends one character at a time with a paced gap
func (m *Manager) typeSlowly(ctx context.Context, r remote.Remote, field remote.Element, text string) error {
	for _, ch := range text {
		if err := r.Act(ctx, field, remote.TypeText(string(ch))); err != nil {
			return err
		}
		if err := r.Sleep(ctx, m.opts.Keystroke.Next()); err != nil {
			return err
		}
	}
	return nil
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	return strings.TrimRight(u.Path, "/")
}
