package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"replharvest/pkg/models"
)

// ProgressDisplay prints one line per item; with debug set it also prints
// the line when an item starts
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	profile   string
	fetched   int
	skipped   int
	failed    int
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay creates a display for profile writing to out
func NewProgressDisplay(out io.Writer, profile string, debug bool) *ProgressDisplay {
	if out == nil {
		out = Out
	}
	return &ProgressDisplay{
		out:       out,
		profile:   profile,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// ItemStarted is called before an item is checked or fetched
func (p *ProgressDisplay) ItemStarted(index, total int, item models.Item) {
	if !p.isDebug {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s %s\n", Magenta("→"), counter(index, total), item.DisplayName)
}

// ItemFinished prints the outcome for an item
func (p *ProgressDisplay) ItemFinished(index, total int, a models.FetchAttempt) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var mark, note string
	switch a.Outcome {
	case models.OutcomeSuccess:
		p.fetched++
		mark = Green("✓")
		if a.RetryCount > 0 {
			note = Dim(fmt.Sprintf("after %d retries", a.RetryCount))
		}
	case models.OutcomeSkipped:
		p.skipped++
		mark = Dim("↷")
		note = Dim("already downloaded")
	default:
		p.failed++
		mark = Red("✗")
		note = Red(a.FaultReason)
	}

	line := fmt.Sprintf("%s %s %s", mark, counter(index, total), a.Item.DisplayName)
	if note != "" {
		line += " • " + note
	}
	if a.Duration > 0 && a.Outcome != models.OutcomeSkipped {
		line += " • " + Dim(formatDuration(a.Duration))
	}
	fmt.Fprintln(p.out, line)
}

// Totals returns fetched, skipped and failed counts so far
func (p *ProgressDisplay) Totals() (fetched, skipped, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetched, p.skipped, p.failed
}

// Complete prints the closing line
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s Fetched %d repls from @%s in %s\n",
		Green("✓"), p.fetched, p.profile, formatDuration(time.Since(p.startTime)))
	if p.failed > 0 {
		fmt.Fprintf(p.out, "  %s %d failed\n", Dim("•"), p.failed)
	}
}

func counter(index, total int) string {
	width := len(fmt.Sprint(total))
	return Cyan(fmt.Sprintf("[%*d/%d]", width, index, total))
}
