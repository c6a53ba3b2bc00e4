// Package roddriver implements remote.Remote on top of go-rod, driving a
// Chromium-family browser over the DevTools protocol.
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"replharvest/pkg/logger"
	"replharvest/pkg/remote"
	"replharvest/pkg/selector"
)

// Drivers
const (
	DriverChrome   = "chrome"
	DriverEdge     = "edge"
	DriverChromium = "chromium"
)

// Options configures how the browser is obtained
type Options struct {
	Driver      string
	Headless    bool
	BinPath     string
	ControlURL  string
	UserDataDir string
	NoSandbox   bool
	// DownloadDir receives every file the page downloads
	DownloadDir       string
	NavigationTimeout time.Duration
	// ActionTimeout bounds every click, typed field, script and element read.
	// rod retries covered or disabled elements until its context ends.
	ActionTimeout time.Duration
}

// withDefaults fills unset timeouts
func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 15 * time.Second
	}
	return o
}

// Driver is a go-rod backed remote.Remote
type Driver struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	attached bool
	opts     Options
	log      logger.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ remote.Remote = (*Driver)(nil)

// Open launches (or attaches to) a browser and opens the single page used for the run
func Open(ctx context.Context, opts Options, log logger.Logger) (*Driver, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	opts = opts.withDefaults()

	d := &Driver{opts: opts, log: log.WithField("component", "roddriver")}

	controlURL := opts.ControlURL
	if controlURL == "" {
		bin, err := ResolveBinary(opts.Driver, opts.BinPath, defaultLookup)
		if err != nil {
			return nil, err
		}

		l := launcher.New().
			Context(ctx).
			Headless(opts.Headless).
			Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		if bin != "" {
			l = l.Bin(bin)
		}
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		if opts.NoSandbox {
			l = l.NoSandbox(true)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch %s: %w", opts.Driver, err)
		}
		d.launcher = l
		controlURL = u
		d.log.WithFields(map[string]interface{}{
			"driver":   opts.Driver,
			"headless": opts.Headless,
		}).Debug("Browser launched")
	} else {
		d.attached = true
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		d.cleanupLauncher()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	d.browser = browser

	if opts.DownloadDir != "" {
		abs, err := filepath.Abs(opts.DownloadDir)
		if err != nil {
			abs = opts.DownloadDir
		}
		err = proto.BrowserSetDownloadBehavior{
			Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath:  abs,
			EventsEnabled: true,
		}.Call(browser)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to set download directory: %w", err)
		}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	d.page = page

	return d, nil
}

// LookupFunc finds an executable by name
type LookupFunc func(name string) (string, bool)

func defaultLookup(name string) (string, bool) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, true
		}
		return "", false
	}
	p, err := exec.LookPath(name)
	return p, err == nil
}

// edgeCandidates lists where Microsoft Edge is usually installed
func edgeCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			"msedge.exe",
		}
	case "darwin":
		return []string{"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"}
	default:
		return []string{"microsoft-edge", "microsoft-edge-stable", "msedge", "/opt/microsoft/msedge/msedge"}
	}
}

// ResolveBinary picks the executable for a driver. An empty result means
// "let rod download and manage its own Chromium".
func ResolveBinary(driver, binPath string, lookup LookupFunc) (string, error) {
	if binPath != "" {
		return binPath, nil
	}

	switch strings.ToLower(driver) {
	case DriverChrome, "":
		if p, ok := launcher.LookPath(); ok {
			return p, nil
		}
		return "", errors.New("chrome not found; set browser.bin_path or use the chromium driver")
	case DriverEdge:
		for _, candidate := range edgeCandidates() {
			if p, ok := lookup(candidate); ok {
				return p, nil
			}
		}
		return "", errors.New("microsoft edge not found; set browser.bin_path")
	case DriverChromium:
		return "", nil
	default:
		return "", fmt.Errorf("unknown browser driver %q", driver)
	}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx).Timeout(d.opts.NavigationTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return toRemoteError(fmt.Errorf("%s: %w", url, err), remote.ErrNavigation)
	}
	if err := page.WaitLoad(); err != nil {
		return toRemoteError(fmt.Errorf("%s: %w", url, err), remote.ErrNavigation)
	}
	return nil
}

func (d *Driver) CurrentLocation(ctx context.Context) (string, error) {
	page := d.page.Context(ctx).Timeout(d.opts.ActionTimeout)
	defer page.CancelTimeout()

	info, err := page.Info()
	if err != nil {
		return "", bounded(err)
	}
	return info.URL, nil
}

func (d *Driver) Locate(ctx context.Context, sel selector.Selector, timeout time.Duration) (remote.Element, error) {
	page := d.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	var (
		el  *rod.Element
		err error
	)
	if sel.Strategy == selector.XPath {
		el, err = page.ElementX(sel.Value)
	} else {
		el, err = page.Element(sel.Value)
	}
	if err != nil {
		return nil, toRemoteError(fmt.Errorf("%s: %w", sel, err), remote.ErrNotFound)
	}
	return d.wrap(el), nil
}

func (d *Driver) LocateAll(ctx context.Context, sel selector.Selector) ([]remote.Element, error) {
	page := d.page.Context(ctx).Timeout(d.opts.ActionTimeout)
	defer page.CancelTimeout()

	var (
		els rod.Elements
		err error
	)
	if sel.Strategy == selector.XPath {
		els, err = page.ElementsX(sel.Value)
	} else {
		els, err = page.Elements(sel.Value)
	}
	if err != nil {
		return nil, bounded(err)
	}

	out := make([]remote.Element, len(els))
	for i, el := range els {
		out[i] = d.wrap(el)
	}
	return out, nil
}

func (d *Driver) Act(ctx context.Context, el remote.Element, action remote.Action) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("roddriver: foreign element %T", el)
	}
	target := e.el.Context(ctx).Timeout(d.opts.ActionTimeout)
	defer target.CancelTimeout()

	switch action.Kind {
	case remote.ActionClick:
		return bounded(target.Click(proto.InputMouseButtonLeft, 1))
	case remote.ActionType:
		return bounded(target.Input(action.Text))
	default:
		return fmt.Errorf("roddriver: unsupported action %q", action.Kind)
	}
}

func (d *Driver) EvaluateScript(ctx context.Context, code string) (any, error) {
	page := d.page.Context(ctx).Timeout(d.opts.ActionTimeout)
	defer page.CancelTimeout()

	res, err := page.Eval(code)
	if err != nil {
		return nil, bounded(err)
	}
	return res.Value.Val(), nil
}

func (d *Driver) WaitUntil(ctx context.Context, pred remote.Predicate, timeout time.Duration) error {
	return remote.Poll(ctx, pred, timeout, 250*time.Millisecond)
}

func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	return remote.SleepContext(ctx, dur)
}

// Close tears the browser down once; an attached browser only loses our page
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		if d.attached {
			if d.page != nil {
				d.closeErr = d.page.Close()
			}
			return
		}
		if d.browser != nil {
			d.closeErr = d.browser.Close()
		}
		d.cleanupLauncher()
	})
	return d.closeErr
}

func (d *Driver) cleanupLauncher() {
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher = nil
	}
}

// toRemoteError maps rod's timeout and lookup failures onto the remote sentinels
func toRemoteError(err error, sentinel error) error {
	var notFound *rod.ElementNotFoundError
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	if sentinel == remote.ErrNavigation {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// bounded turns an expired action deadline into remote.ErrTimeout
func bounded(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", remote.ErrTimeout, err)
	}
	return err
}

type element struct {
	el      *rod.Element
	timeout time.Duration
}

func (d *Driver) wrap(el *rod.Element) *element {
	return &element{el: el, timeout: d.opts.ActionTimeout}
}

func (e *element) Text(ctx context.Context) (string, error) {
	scoped := e.el.Context(ctx).Timeout(e.timeout)
	defer scoped.CancelTimeout()

	text, err := scoped.Text()
	return text, bounded(err)
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	scoped := e.el.Context(ctx).Timeout(e.timeout)
	defer scoped.CancelTimeout()

	v, err := scoped.Attribute(name)
	if err != nil {
		return "", false, bounded(err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Find(ctx context.Context, sel selector.Selector) (remote.Element, error) {
	scoped := e.el.Context(ctx).Timeout(e.timeout)
	defer scoped.CancelTimeout()

	var (
		els rod.Elements
		err error
	)
	if sel.Strategy == selector.XPath {
		els, err = scoped.ElementsX(sel.Value)
	} else {
		els, err = scoped.Elements(sel.Value)
	}
	if err != nil {
		return nil, bounded(err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", sel, remote.ErrNotFound)
	}
	return &element{el: els[0], timeout: e.timeout}, nil
}
