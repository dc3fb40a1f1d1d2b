package monitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/config"
	"github.com/knu-notice/noticewatch/internal/state"
)

// previewLimit caps the number of extracted records logged per site
// when preview mode is on.
const previewLimit = 5

// Engine runs the full fetch -> extract -> classify -> notify pipeline
// across all configured sites, one site at a time.
type Engine struct {
	sites     []config.Site
	fetcher   Fetcher
	extractor *Extractor
	notifier  Notifier
	store     StateStore
	logger    *zap.Logger
	dryRun    bool
	preview   bool
}

// Options carries the run flags that alter Engine behavior.
type Options struct {
	// DryRun replaces delivery with a log line while still advancing
	// dedup state. Used to seed state on a fresh deployment.
	DryRun bool
	// Preview logs the first few extracted records per site.
	Preview bool
}

// NewEngine constructs an Engine over the given collaborators.
func NewEngine(
	sites []config.Site,
	fetcher Fetcher,
	notifier Notifier,
	store StateStore,
	opts Options,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sites:     sites,
		fetcher:   fetcher,
		extractor: NewExtractor(logger),
		notifier:  notifier,
		store:     store,
		logger:    logger,
		dryRun:    opts.DryRun,
		preview:   opts.Preview,
	}
}

// Run processes every configured site in order and returns the total
// number of new items found. A failing site is logged and skipped; the
// state file is persisted exactly once at the end, and only a failed
// persist makes the run itself fail.
func (e *Engine) Run(ctx context.Context) (int, error) {
	st, err := e.store.Load()
	if err != nil {
		return 0, fmt.Errorf("load state: %w", err)
	}

	total := 0
	for _, site := range e.sites {
		count, err := e.processSite(ctx, site, st)
		if err != nil {
			SitesFailed.Inc()
			e.logger.Error("site processing failed",
				zap.String("site", site.Name), zap.Error(err))
			continue
		}
		SitesProcessed.Inc()
		e.logger.Info("site processed",
			zap.String("site", site.Name), zap.Int("new_posts", count))
		total += count
	}

	if err := e.store.Save(st); err != nil {
		return total, fmt.Errorf("persist state: %w", err)
	}
	return total, nil
}

// processSite runs one site's pipeline pass and mutates st in place.
// Nothing is written to st when the fetch or extraction fails, so a
// broken site keeps its history intact for the next run.
func (e *Engine) processSite(ctx context.Context, site config.Site, st state.State) (int, error) {
	html, err := e.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		return 0, err
	}

	records, err := e.extractor.Extract(html, site)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(st[site.Name]))
	for _, key := range st[site.Name] {
		seen[key] = struct{}{}
	}

	var (
		newKeys []string
		shown   int
	)
	for _, rec := range records {
		if e.preview && shown < previewLimit {
			e.logger.Info("preview",
				zap.String("site", site.Name),
				zap.String("title", rec.Title),
				zap.String("link", rec.Link),
				zap.String("date", rec.DateText))
			shown++
		}

		if _, dup := seen[rec.Key]; dup {
			continue
		}

		e.deliver(ctx, site.Name, rec)

		// The row is recorded as seen even when delivery failed:
		// at-most-once beats a duplicate flood on a webhook outage.
		newKeys = append(newKeys, rec.Key)
		seen[rec.Key] = struct{}{}
		NewItems.Inc()
	}

	st[site.Name] = state.Merge(st[site.Name], newKeys, site.MaxItems)
	return len(newKeys), nil
}

func (e *Engine) deliver(ctx context.Context, siteName string, rec Record) {
	if e.dryRun {
		e.logger.Info("dry run, would notify",
			zap.String("site", siteName),
			zap.String("title", rec.Title),
			zap.String("link", rec.Link))
		return
	}
	if err := e.notifier.Notify(ctx, siteName, rec); err != nil {
		DeliveryFailures.Inc()
		e.logger.Error("notification delivery failed",
			zap.String("site", siteName),
			zap.String("title", rec.Title),
			zap.Error(err))
	}
}
