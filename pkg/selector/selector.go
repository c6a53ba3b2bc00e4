package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Strategy is how a selector value is interpreted by the remote view
type Strategy string

const (
	CSS   Strategy = "css"
	XPath Strategy = "xpath"
)

// Selector addresses elements in the remote view
type Selector struct {
	Strategy Strategy
	Value    string
}

// ByCSS builds a CSS selector
func ByCSS(value string) Selector { return Selector{Strategy: CSS, Value: value} }

// ByXPath builds an XPath selector
func ByXPath(value string) Selector { return Selector{Strategy: XPath, Value: value} }

// IsZero reports whether the selector is unset
func (s Selector) IsZero() bool { return s.Value == "" }

func (s Selector) String() string {
	return string(s.Strategy) + ":" + s.Value
}

// Intent is a logical UI element, independent of how the page currently marks it up
type Intent string

const (
	LoginUsernameField Intent = "login-username-field"
	LoginPasswordField Intent = "login-password-field"
	LoginSubmit        Intent = "login-submit"
	ListingContainer   Intent = "listing-container"
	ListingItem        Intent = "listing-item"
	ListingItemName    Intent = "listing-item-name"
	ListingItemLink    Intent = "listing-item-link"
	ItemViewReady      Intent = "item-view-ready"
	SidePanelToggle    Intent = "side-panel-toggle"
	MoreActions        Intent = "more-actions"
	ExportAction       Intent = "export-action"
)

// Intents lists every known intent in a stable order
func Intents() []Intent {
	return []Intent{
		LoginUsernameField, LoginPasswordField, LoginSubmit,
		ListingContainer, ListingItem, ListingItemName, ListingItemLink,
		ItemViewReady, SidePanelToggle, MoreActions, ExportAction,
	}
}

// Map resolves intents to concrete selectors
type Map struct {
	entries map[Intent]Selector
}

// Default returns the compiled-in selector map for the Replit UI
func Default() *Map {
	return &Map{entries: map[Intent]Selector{
		LoginUsernameField: ByCSS(`input[name="username"]`),
		LoginPasswordField: ByCSS(`input[name="password"]`),
		LoginSubmit:        ByCSS(`button[type="submit"]`),
		ListingContainer:   ByCSS(`.css-6og7tn`),
		ListingItem:        ByCSS(`.css-6og7tn li`),
		ListingItemName:    ByCSS(`.css-1t25kw8`),
		ListingItemLink:    ByCSS(`a`),
		ItemViewReady:      ByCSS(`[data-cy="workspace-layout"], main`),
		SidePanelToggle:    ByCSS(`button[aria-label="Toggle sidebar"]`),
		MoreActions:        ByCSS(`button[aria-label="Download"]`),
		ExportAction:       ByXPath(`//span[text()='Download as zip']`),
	}}
}

// Resolve returns the selector for an intent
func (m *Map) Resolve(intent Intent) (Selector, error) {
	sel, ok := m.entries[intent]
	if !ok || sel.IsZero() {
		return Selector{}, fmt.Errorf("no selector for intent %q", intent)
	}
	return sel, nil
}

// MustResolve is Resolve for intents that Default always carries
func (m *Map) MustResolve(intent Intent) Selector {
	sel, err := m.Resolve(intent)
	if err != nil {
		panic(err)
	}
	return sel
}

// Set overrides one intent
func (m *Map) Set(intent Intent, sel Selector) {
	m.entries[intent] = sel
}

// Entries returns a copy of the mapping sorted by intent
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for intent, sel := range m.entries {
		out = append(out, Entry{Intent: intent, Selector: sel})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Intent < out[j].Intent })
	return out
}

// Entry is one resolved intent
type Entry struct {
	Intent   Intent
	Selector Selector
}

// fileEntry is the on-disk form of one override; exactly one field is set
type fileEntry struct {
	CSS   string `yaml:"css" toml:"css"`
	XPath string `yaml:"xpath" toml:"xpath"`
}

// LoadFile applies overrides from a YAML (.yaml, .yml) or TOML (.toml) file on
// top of the defaults. Unknown intents are rejected so typos surface early.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector file: %w", err)
	}

	raw := map[string]fileEntry{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse selector file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse selector file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported selector file extension %q", filepath.Ext(path))
	}

	m := Default()
	if err := m.apply(raw); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) apply(raw map[string]fileEntry) error {
	known := map[Intent]bool{}
	for _, intent := range Intents() {
		known[intent] = true
	}

	for name, entry := range raw {
		intent := Intent(name)
		if !known[intent] {
			return fmt.Errorf("unknown selector intent %q", name)
		}
		switch {
		case entry.CSS != "" && entry.XPath != "":
			return fmt.Errorf("intent %q sets both css and xpath", name)
		case entry.CSS != "":
			m.Set(intent, ByCSS(entry.CSS))
		case entry.XPath != "":
			m.Set(intent, ByXPath(entry.XPath))
		default:
			return fmt.Errorf("intent %q has no selector", name)
		}
	}
	return nil
}

// Load returns the defaults, or the defaults overlaid with path when it is set
func Load(path string) (*Map, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
