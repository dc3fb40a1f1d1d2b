// Package fetch retrieves board pages over HTTP with retry and charset
// handling.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/config"
)

// Error wraps the last error after all fetch attempts were exhausted.
// It aborts processing for the current site only.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher performs single-page GETs through a colly collector cloned
// per request over a shared transport.
type Fetcher struct {
	cfg           config.HTTPConfig
	baseCollector *colly.Collector
	logger        *zap.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewTransport builds the HTTP transport shared by all fetches and
// deliveries within a run.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// New builds a Fetcher over the given shared transport.
func New(cfg config.HTTPConfig, transport http.RoundTripper, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if transport != nil {
		c.WithTransport(transport)
	}
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	c.SetRequestTimeout(timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
		sleep:         sleepCtx,
	}
}

// Fetch retrieves a URL with up to cfg.Retries attempts, sleeping
// backoff * attempt between failures (linear backoff). The body is
// decoded via charset detection before being returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	retries := f.cfg.Retries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return DecodeBody(body), nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == retries {
			break
		}
		if err := f.sleep(ctx, f.cfg.Backoff*time.Duration(attempt)); err != nil {
			return "", &Error{URL: url, Err: err}
		}
	}
	return "", &Error{URL: url, Err: lastErr}
}

// fetchOnce executes one HTTP GET through a cloned collector.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	// Retries re-visit the same URL; colly must not dedupe them.
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true

	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		if f.cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
