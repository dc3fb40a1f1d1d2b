package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/knu-notice/noticewatch/internal/monitor"
)

// Disabled is the notifier used when no webhook endpoint is configured.
// It warns once at construction and then swallows every delivery.
type Disabled struct{}

// NewDisabled logs the missing-endpoint warning and returns the no-op
// notifier.
func NewDisabled(logger *zap.Logger) *Disabled {
	if logger != nil {
		logger.Warn("webhook url not set; notifications disabled")
	}
	return &Disabled{}
}

// Notify does nothing.
func (*Disabled) Notify(context.Context, string, monitor.Record) error {
	return nil
}
