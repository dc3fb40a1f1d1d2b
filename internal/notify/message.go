package notify

import (
	"strings"

	"github.com/knu-notice/noticewatch/internal/monitor"
)

// ComposeMessage builds the human-readable notification text for one
// new announcement. Site name, title, and date text pass through
// Sanitize first so display surfaces cannot be glitched or spoofed by
// invisible characters in scraped content.
func ComposeMessage(siteName string, rec monitor.Record) string {
	var b strings.Builder
	b.WriteString("**[" + Sanitize(siteName) + "] 새 공지**\n")
	b.WriteString(Sanitize(rec.Title))
	if rec.Link != "" {
		b.WriteString("\n" + rec.Link)
	}
	if rec.DateText != "" {
		b.WriteString("\n게시일: " + Sanitize(rec.DateText))
	}
	return b.String()
}

// Sanitize strips zero-width and bidirectional-control characters.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r >= 0x200b && r <= 0x200f {
			return -1
		}
		if r >= 0x202a && r <= 0x202e {
			return -1
		}
		return r
	}, s))
}
