// Package monitor implements the notice board polling pipeline: row
// extraction, dedup classification, and per-site orchestration.
package monitor

// Record is one announcement row extracted from a board page. Records
// exist only within a single site's processing pass.
type Record struct {
	// Title is the whitespace-normalized row title.
	Title string
	// Link is the absolute detail URL, or empty when the row had no href.
	Link string
	// DateText is the normalized posted-date text, or empty.
	DateText string
	// Key is the dedup identity used against the seen-key history.
	Key string
}
