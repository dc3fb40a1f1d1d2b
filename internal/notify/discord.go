// Package notify delivers new-announcement messages to a Discord-style
// webhook, honoring rate-limit backpressure.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/config"
	"github.com/knu-notice/noticewatch/internal/monitor"
)

// defaultRetryAfter applies when a 429 body carries no usable
// retry_after field.
const defaultRetryAfter = time.Second

// Webhook posts messages to a webhook endpoint over the shared HTTP
// session.
type Webhook struct {
	url    string
	client *http.Client
	cfg    config.NotifyConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWebhook builds a Webhook notifier over the shared transport.
func NewWebhook(cfg config.NotifyConfig, transport http.RoundTripper, timeout time.Duration, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		url: cfg.WebhookURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Notify composes and posts the message for one new record. Rate-limit
// responses are retried with the server-specified wait; any other error
// status is a non-fatal delivery failure reported to the caller.
func (w *Webhook) Notify(ctx context.Context, siteName string, rec monitor.Record) error {
	payload, err := json.Marshal(map[string]string{
		"content": ComposeMessage(siteName, rec),
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	maxRetries := w.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		status, body, err := w.post(ctx, payload)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		switch {
		case status < http.StatusBadRequest:
			// Small fixed delay after every delivery keeps the run
			// under the webhook's global rate budget.
			_ = w.sleep(ctx, w.cfg.PostDelay)
			return nil
		case status == http.StatusTooManyRequests:
			wait := parseRetryAfter(body)
			w.logger.Warn("webhook rate limited",
				zap.String("site", siteName),
				zap.Duration("retry_after", wait))
			if err := w.sleep(ctx, wait+w.cfg.RetryMargin); err != nil {
				return err
			}
		default:
			return fmt.Errorf("webhook failed: status %d: %s", status, strings.TrimSpace(string(body)))
		}
	}
	return fmt.Errorf("webhook still rate limited after %d attempts", maxRetries)
}

func (w *Webhook) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // response body close

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, body, nil
}

// parseRetryAfter extracts the server-specified wait from a 429 body.
func parseRetryAfter(body []byte) time.Duration {
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.RetryAfter <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(parsed.RetryAfter * float64(time.Second))
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
