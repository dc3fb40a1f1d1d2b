package monitor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/config"
)

// dateLabel marks the posted-date cell on boards that cram several
// metadata spans into one selector ("작성일" = date posted).
const dateLabel = "작성일"

// keySeparator joins title and date for the title+date id strategy.
// Both fields are whitespace-normalized, so a control byte can never
// occur in either.
const keySeparator = "\x1f"

const defaultAnchorSelector = "a"

var whitespaceRuns = regexp.MustCompile(`\s+`)

// skipRule is one parsed entry of skip_if_selector. With Contains empty
// the rule matches when any descendant matches Selector; otherwise a
// matching descendant's text must also contain the literal.
type skipRule struct {
	Selector string
	Contains string
}

// parseSkipRule understands "sel" and "sel:contains('literal')" forms.
func parseSkipRule(raw string) skipRule {
	base, rest, found := strings.Cut(raw, ":contains(")
	if !found {
		return skipRule{Selector: raw}
	}
	text := strings.TrimSuffix(rest, ")")
	text = strings.Trim(text, `'"`)
	return skipRule{Selector: base, Contains: text}
}

// Extractor applies a site's declarative rules to page markup.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract produces at most site.MaxItems Records from the page, in
// document order. A page where nothing matches the list selector is a
// warning, not an error: boards occasionally serve maintenance pages.
func (e *Extractor) Extract(html string, site config.Site) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page for %s: %w", site.Name, err)
	}

	rows := doc.Find(site.ListSelector)
	if rows.Length() == 0 {
		e.logger.Warn("no rows matched list selector",
			zap.String("site", site.Name),
			zap.String("selector", site.ListSelector))
		return nil, nil
	}
	if rows.Length() > site.MaxItems {
		rows = rows.Slice(0, site.MaxItems)
	}

	base, err := url.Parse(site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", site.Name, err)
	}

	rules := make([]skipRule, 0, len(site.SkipIfSelector))
	for _, raw := range site.SkipIfSelector {
		rules = append(rules, parseSkipRule(raw))
	}

	var records []Record
	rows.Each(func(_ int, row *goquery.Selection) {
		if matchesSkipRule(row, rules) {
			return
		}
		rec, ok := e.extractRow(row, site, base)
		if !ok {
			return
		}
		records = append(records, rec)
	})
	return records, nil
}

func (e *Extractor) extractRow(row *goquery.Selection, site config.Site, base *url.URL) (Record, bool) {
	titleSel := site.TitleSelector
	if titleSel == "" {
		titleSel = defaultAnchorSelector
	}
	titleEl := row.Find(titleSel).First()
	if titleEl.Length() == 0 {
		// Separator and pager rows have no title anchor; drop silently.
		return Record{}, false
	}
	title := normalizeText(titleEl.Text())

	rec := Record{
		Title:    title,
		Link:     resolveLink(row, site, base),
		DateText: extractDate(row, site),
	}
	rec.Key = dedupKey(rec, site)
	return rec, true
}

func matchesSkipRule(row *goquery.Selection, rules []skipRule) bool {
	for _, rule := range rules {
		matched := row.Find(rule.Selector)
		if matched.Length() == 0 {
			continue
		}
		if rule.Contains == "" {
			return true
		}
		hit := false
		matched.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if strings.Contains(el.Text(), rule.Contains) {
				hit = true
				return false
			}
			return true
		})
		if hit {
			return true
		}
	}
	return false
}

// resolveLink finds the row's detail href and resolves it against the
// site base URL. Some boards render each row as a bare <a>, in which
// case the row's own href is used.
func resolveLink(row *goquery.Selection, site config.Site, base *url.URL) string {
	linkSel := site.LinkSelector
	if linkSel == "" {
		linkSel = defaultAnchorSelector
	}
	href, _ := row.Find(linkSel).First().Attr("href")
	if href == "" && goquery.NodeName(row) == "a" {
		href, _ = row.Attr("href")
	}
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractDate picks the posted date out of the row. When the selector
// matches several elements it prefers the first one carrying the
// dateLabel token, stripping the label and any colon; otherwise the
// first match wins as-is.
func extractDate(row *goquery.Selection, site config.Site) string {
	if site.DateSelector == "" {
		return ""
	}
	matches := row.Find(site.DateSelector)
	if matches.Length() == 0 {
		return ""
	}

	var labeled string
	matches.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		txt := normalizeText(el.Text())
		if strings.Contains(txt, dateLabel) {
			txt = strings.ReplaceAll(txt, dateLabel, "")
			txt = strings.ReplaceAll(txt, ":", "")
			labeled = strings.TrimSpace(txt)
			return false
		}
		return true
	})
	if labeled != "" {
		return labeled
	}
	return normalizeText(matches.First().Text())
}

// dedupKey derives the record identity. With the link strategy the
// resolved link alone identifies a row; rows without links (and the
// title+date strategy) fall back to title plus date text.
func dedupKey(rec Record, site config.Site) string {
	if site.IDStrategy == config.IDStrategyLink && rec.Link != "" {
		return rec.Link
	}
	return rec.Title + keySeparator + rec.DateText
}

// normalizeText collapses whitespace runs to single spaces and trims.
func normalizeText(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}
