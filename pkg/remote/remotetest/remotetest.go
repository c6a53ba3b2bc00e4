// Package remotetest provides a scripted in-memory remote view for tests.
//
// Elements are registered per selector with Set; hooks let a test react to
// navigation, clicks, typing and scripts (for example rendering more list
// items when the scroll script runs). Sleep only records the duration.
package remotetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
)

// Element is a fake rendered element
type Element struct {
	Name     string
	Label    string
	Attrs    map[string]string
	Children map[string][]*Element

	mu     sync.Mutex
	typed  string
	clicks int
}

// NewElement creates an element with the given visible text
func NewElement(name, label string) *Element {
	return &Element{Name: name, Label: label, Attrs: map[string]string{}, Children: map[string][]*Element{}}
}

// WithAttr sets an attribute and returns the element
func (e *Element) WithAttr(key, value string) *Element {
	e.Attrs[key] = value
	return e
}

// WithChild registers a descendant reachable through sel
func (e *Element) WithChild(sel selector.Selector, child *Element) *Element {
	e.Children[sel.String()] = append(e.Children[sel.String()], child)
	return e
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.Label, ctx.Err()
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, ctx.Err()
}

func (e *Element) Find(ctx context.Context, sel selector.Selector) (remote.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kids := e.Children[sel.String()]; len(kids) > 0 {
		return kids[0], nil
	}
	return nil, fmt.Errorf("%s: %w", sel, remote.ErrNotFound)
}

// Typed returns everything typed into the element
func (e *Element) Typed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed
}

// Clicks returns how many times the element was clicked
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Remote is a fake remote.Remote
type Remote struct {
	// Hooks run without the internal lock held and may call Set/Clear/SetLocation
	NavigateHook func(url string) error
	ClickHook    func(el *Element) error
	TypeHook     func(el *Element, text string) error
	ScriptHook   func(code string) (any, error)

	// MaxPolls bounds how often WaitUntil evaluates its predicate (default 3)
	MaxPolls int

	mu          sync.Mutex
	location    string
	elements    map[string][]*Element
	navigations []string
	probes      map[string]int
	scripts     []string
	slept       []time.Duration
	closeCalls  int
}

var _ remote.Remote = (*Remote)(nil)

// New creates an empty fake view
func New() *Remote {
	return &Remote{
		elements: map[string][]*Element{},
		probes:   map[string]int{},
	}
}

// Set renders els for sel, replacing what was there
func (r *Remote) Set(sel selector.Selector, els ...*Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements[sel.String()] = els
}

// Append renders additional elements for sel
func (r *Remote) Append(sel selector.Selector, els ...*Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements[sel.String()] = append(r.elements[sel.String()], els...)
}

// Clear removes sel from the view
func (r *Remote) Clear(sel selector.Selector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.elements, sel.String())
}

// SetLocation moves the view without recording a navigation
func (r *Remote) SetLocation(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = url
}

func (r *Remote) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.navigations = append(r.navigations, url)
	hook := r.NavigateHook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(url); err != nil {
			return err
		}
	}
	r.SetLocation(url)
	return nil
}

func (r *Remote) CurrentLocation(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location, ctx.Err()
}

func (r *Remote) Locate(ctx context.Context, sel selector.Selector, timeout time.Duration) (remote.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.probes[sel.String()]++
	if els := r.elements[sel.String()]; len(els) > 0 {
		return els[0], nil
	}
	return nil, fmt.Errorf("%s: %w", sel, remote.ErrNotFound)
}

func (r *Remote) LocateAll(ctx context.Context, sel selector.Selector) ([]remote.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	els := r.elements[sel.String()]
	out := make([]remote.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (r *Remote) Act(ctx context.Context, el remote.Element, action remote.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fake, ok := el.(*Element)
	if !ok {
		return fmt.Errorf("remotetest: foreign element %T", el)
	}

	switch action.Kind {
	case remote.ActionClick:
		fake.mu.Lock()
		fake.clicks++
		fake.mu.Unlock()
		if r.ClickHook != nil {
			return r.ClickHook(fake)
		}
	case remote.ActionType:
		fake.mu.Lock()
		fake.typed += action.Text
		fake.mu.Unlock()
		if r.TypeHook != nil {
			return r.TypeHook(fake, action.Text)
		}
	default:
		return fmt.Errorf("remotetest: unsupported action %q", action.Kind)
	}
	return nil
}

func (r *Remote) EvaluateScript(ctx context.Context, code string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.scripts = append(r.scripts, code)
	r.mu.Unlock()

	if r.ScriptHook != nil {
		return r.ScriptHook(code)
	}
	return nil, nil
}

func (r *Remote) WaitUntil(ctx context.Context, pred remote.Predicate, timeout time.Duration) error {
	polls := r.MaxPolls
	if polls <= 0 {
		polls = 3
	}
	for i := 0; i < polls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok, err := pred(ctx); err == nil && ok {
			return nil
		}
	}
	return remote.ErrTimeout
}

func (r *Remote) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeCalls++
	return nil
}

// Navigations returns every URL passed to Navigate
func (r *Remote) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigations...)
}

// Probes returns how many times Locate was called for sel
func (r *Remote) Probes(sel selector.Selector) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.probes[sel.String()]
}

// Scripts returns every evaluated script
func (r *Remote) Scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scripts...)
}

// Slept returns every recorded sleep
func (r *Remote) Slept() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.slept...)
}

// CloseCalls returns how many times Close ran
func (r *Remote) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}
