package monitor

import (
	"context"

	"github.com/knu-notice/noticewatch/internal/state"
)

// Fetcher retrieves a page and returns its decoded text content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Notifier delivers one new record to the configured sink. Transient
// delivery problems are handled inside the implementation; a returned
// error means the record could not be delivered at all.
type Notifier interface {
	Notify(ctx context.Context, siteName string, rec Record) error
}

// StateStore loads the seen-key state at run start and persists it at
// run end.
type StateStore interface {
	Load() (state.State, error)
	Save(st state.State) error
}
