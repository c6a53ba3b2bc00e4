// Package scraper runs a harvest from start to finish.
//
// Scraper.Run moves through INIT, AUTHENTICATING, AUTHENTICATED, LISTING,
// one FETCHING_ITEM per fetched item, and DONE. Any fatal error moves it to
// CLEANUP instead. The browser session is closed on every path.
//
// Orchestrator.Run is the per-item loop: skip items whose archive already
// exists, otherwise fetch with a bounded number of attempts, return to the
// listing, and pause before the next item. A failing item never stops the
// loop; only context cancellation does.
package scraper
