// Package state persists the per-site seen-key history between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// State maps site name to the ordered dedup keys already notified for
// that site. Order is discovery order; oldest keys sit at the front.
type State map[string][]string

// Merge combines a site's existing keys with keys discovered this run.
// Duplicates are removed keeping the first occurrence, then the result
// is truncated to the last keep entries so the oldest keys are evicted
// first.
func Merge(existing, added []string, keep int) []string {
	merged := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]struct{}, len(existing)+len(added))
	for _, key := range append(append([]string{}, existing...), added...) {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	if keep > 0 && len(merged) > keep {
		merged = merged[len(merged)-keep:]
	}
	return merged
}

// FileStore reads and writes State as a JSON object of key arrays.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore builds a store for the given file path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing or unparsable file yields empty
// state: the dedup history is self-healing, losing it at worst causes a
// one-time re-notification.
func (s *FileStore) Load() (State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		s.logger.Warn("state file unreadable; starting from empty state",
			zap.String("path", s.path), zap.Error(err))
		return State{}, nil
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Warn("state file corrupt; starting from empty state",
			zap.String("path", s.path), zap.Error(err))
		return State{}, nil
	}
	if st == nil {
		st = State{}
	}
	return st, nil
}

// Save writes the full state mapping, creating parent directories as
// needed. The run fails only when this final persist fails.
func (s *FileStore) Save(st State) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
