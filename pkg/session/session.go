// Package session owns the single remote view used by a run and the login
// flow that authenticates it.
package session

import (
	"context"
	"errors"
	"sync"

	errs "replharvest/pkg/errors"
	"replharvest/pkg/remote"
)

// Session is the explicit handle on one remote view. It is created once per
// run, authenticated before discovery, and closed exactly once.
type Session struct {
	remote remote.Remote

	mu            sync.Mutex
	authenticated bool
	history       []string

	closeOnce sync.Once
	closeErr  error
}

// New wraps r in a fresh, unauthenticated session
func New(r remote.Remote) *Session {
	return &Session{remote: r}
}

// Remote returns the underlying view
func (s *Session) Remote() remote.Remote { return s.remote }

// Navigate moves the view to url and records it in the history
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.history = append(s.history, url)
	s.mu.Unlock()

	if err := s.remote.Navigate(ctx, url); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return errs.NavigationTimeout("navigate", url, err)
	}
	return nil
}

// Location returns where the view currently is
func (s *Session) Location(ctx context.Context) (string, error) {
	return s.remote.CurrentLocation(ctx)
}

// History returns every location requested through Navigate, in order
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Authenticated reports whether login completed
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) setAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// Close releases the view; later calls return the first result
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.setAuthenticated(false)
		s.closeErr = s.remote.Close()
	})
	return s.closeErr
}
