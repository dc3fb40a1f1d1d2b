package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMergeKeepsOrderAndDedupes(t *testing.T) {
	t.Parallel()

	existing := []string{"a", "b", "c"}
	added := []string{"b", "d", "d", "e"}

	got := Merge(existing, added, 20)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestMergeEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	existing := []string{"k1", "k2", "k3"}
	added := []string{"k4", "k5"}

	got := Merge(existing, added, 3)
	require.Equal(t, []string{"k3", "k4", "k5"}, got)
}

func TestMergeNeverExceedsBound(t *testing.T) {
	t.Parallel()

	keys := []string(nil)
	for range 10 {
		keys = Merge(keys, []string{"x1", "x2", "x3", "x4"}, 3)
		require.LessOrEqual(t, len(keys), 3)
	}
	require.Equal(t, []string{"x2", "x3", "x4"}, keys)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "seen.json")
	store := NewFileStore(path, zap.NewNop())

	st := State{
		"cs-notice": {"https://cs.example.ac.kr/view?id=1", "https://cs.example.ac.kr/view?id=2"},
	}
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, st, loaded)

	// The on-disk format is a plain JSON object of string arrays.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string][]string
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Len(t, generic["cs-notice"], 2)
}

func TestFileStoreMissingFileIsEmptyState(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())
	st, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, st)
}

func TestFileStoreCorruptFileIsEmptyState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path, zap.NewNop())
	st, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, st)
}
