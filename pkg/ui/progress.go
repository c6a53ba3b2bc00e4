package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"replharvest/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// Bar renders done/total as a fixed width bar
func Bar(done, total, width int) string {
	if total <= 0 {
		return strings.Repeat(ProgressEmpty, width)
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// PrintInventory lists discovered items, used by dry runs
func PrintInventory(w io.Writer, inv *models.Inventory) {
	if inv == nil {
		return
	}
	fmt.Fprintf(w, "\n%s %d repls\n", Cyan("[DISCOVERED]"), inv.Len())
	for i, item := range inv.Items() {
		fmt.Fprintf(w, "  %3d. %s %s\n", i+1, item.DisplayName, Dim(item.NavigationTarget))
	}
}

// PrintSummary prints per-outcome totals and every failure with its reason
func PrintSummary(w io.Writer, report *models.FetchReport) {
	if report == nil {
		return
	}
	total := len(report.Attempts)

	fmt.Fprintf(w, "\n%s [%s] %d/%d in %s\n",
		Green("[HARVESTED]"),
		Bar(report.Succeeded()+report.Skipped(), total, 20),
		report.Succeeded()+report.Skipped(),
		total,
		formatDuration(report.Elapsed()),
	)
	fmt.Fprintf(w, "  %s fetched  %d\n", Dim("•"), report.Succeeded())
	fmt.Fprintf(w, "  %s skipped  %d\n", Dim("•"), report.Skipped())
	fmt.Fprintf(w, "  %s failed   %d\n", Dim("•"), report.Failed())

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", Red("[FAILED]"))
	for _, a := range failures {
		reason := a.FaultReason
		if reason == "" {
			reason = "unknown error"
		}
		fmt.Fprintf(w, "  %s %s (%d retries): %s\n", Red("✗"), a.Item.DisplayName, a.RetryCount, reason)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
