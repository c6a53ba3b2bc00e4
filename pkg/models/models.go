package models

import (
	"time"

	"replharvest/pkg/identity"
)

// Item is one project discovered in the listing
type Item struct {
	IdentityKey      string `json:"identity_key"`
	DisplayName      string `json:"display_name"`
	NavigationTarget string `json:"navigation_target"`
}

// NewItem derives the identity key from the display name
func NewItem(name, target string) Item {
	return Item{
		IdentityKey:      identity.Normalize(name),
		DisplayName:      name,
		NavigationTarget: target,
	}
}

// Inventory is the set of discovered items, iterated in discovery order
type Inventory struct {
	items []Item
	index map[string]int
}

// NewInventory creates an empty inventory
func NewInventory() *Inventory {
	return &Inventory{index: map[string]int{}}
}

// Add inserts item unless its key is already present or empty.
// It returns true when the inventory grew.
func (inv *Inventory) Add(item Item) bool {
	if item.IdentityKey == "" {
		return false
	}
	if _, ok := inv.index[item.IdentityKey]; ok {
		return false
	}
	inv.index[item.IdentityKey] = len(inv.items)
	inv.items = append(inv.items, item)
	return true
}

// Contains reports whether key is present
func (inv *Inventory) Contains(key string) bool {
	_, ok := inv.index[key]
	return ok
}

// Get returns the item stored under key
func (inv *Inventory) Get(key string) (Item, bool) {
	i, ok := inv.index[key]
	if !ok {
		return Item{}, false
	}
	return inv.items[i], true
}

// Len returns the number of items
func (inv *Inventory) Len() int { return len(inv.items) }

// Items returns a copy of the items in discovery order
func (inv *Inventory) Items() []Item {
	return append([]Item(nil), inv.items...)
}

// Outcome is the terminal result of one item
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// FetchAttempt records what happened to one item
type FetchAttempt struct {
	Item        Item          `json:"item"`
	Outcome     Outcome       `json:"outcome"`
	RetryCount  int           `json:"retry_count"`
	FaultReason string        `json:"fault_reason,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// FetchReport is the outcome of a whole run
type FetchReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Attempts   []FetchAttempt `json:"attempts"`
}

// Record appends an attempt
func (r *FetchReport) Record(a FetchAttempt) {
	r.Attempts = append(r.Attempts, a)
}

func (r *FetchReport) count(o Outcome) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// Succeeded returns the number of successful items
func (r *FetchReport) Succeeded() int { return r.count(OutcomeSuccess) }

// Skipped returns the number of items already present
func (r *FetchReport) Skipped() int { return r.count(OutcomeSkipped) }

// Failed returns the number of items that exhausted their attempts
func (r *FetchReport) Failed() int { return r.count(OutcomeFailure) }

// Failures returns the failed attempts
func (r *FetchReport) Failures() []FetchAttempt {
	var out []FetchAttempt
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeFailure {
			out = append(out, a)
		}
	}
	return out
}

// Elapsed returns the wall time of the run
func (r *FetchReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
