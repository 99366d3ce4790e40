package knowledge

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "knowledge.json"))
}

// readSnapshot parses the durable file so tests can assert disk state.
func readSnapshot(t *testing.T, path string) []Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestAppendPersistsAndReturnsID(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append("first entry", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries := s.All()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "first entry", entries[0].Text)
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.Nil(t, entries[0].UpdatedAt)

	onDisk := readSnapshot(t, s.path)
	assert.Equal(t, entries, onDisk)
}

func TestAppendRejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append("three dims", []float32{1, 0, 0})
	require.NoError(t, err)

	_, err = s.Append("two dims", []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, s.Len())

	_, err = s.Append("empty", nil)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestUpdateReplacesAtomically(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append("original", []float32{1, 0, 0})
	require.NoError(t, err)

	require.NoError(t, s.Update(id, "revised", []float32{0, 1, 0}))

	entries := s.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "revised", entries[0].Text)
	assert.Equal(t, []float32{0, 1, 0}, entries[0].Embedding)
	require.NotNil(t, entries[0].UpdatedAt)

	assert.Equal(t, entries, readSnapshot(t, s.path))
}

func TestUpdateUnknownIDFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append("entry", []float32{1})
	require.NoError(t, err)

	err = s.Update("no-such-id", "text", []float32{2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append("entry", []float32{1, 2})
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, readSnapshot(t, s.path))

	// Second delete of the same id is a no-op success.
	require.NoError(t, s.Delete(id))
	require.NoError(t, s.Delete("never-existed"))
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestLoadMixedDimensionsStartsEmpty(t *testing.T) {
	// Well-formed JSON, but written under two different embedding models.
	// Same policy as corruption: warn and start empty rather than serving a
	// store that can never rank consistently.
	path := filepath.Join(t.TempDir(), "knowledge.json")
	snapshot := `[
		{"id": "a", "text": "three dims", "embedding": [1, 0, 0], "createdAt": "2026-01-01T00:00:00Z"},
		{"id": "b", "text": "two dims", "embedding": [1, 0], "createdAt": "2026-01-01T00:00:00Z"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0644))

	s := NewStore(path)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")

	s := NewStore(path)
	id, err := s.Append("survives restart", []float32{0.25, 0.75})
	require.NoError(t, err)

	reopened := NewStore(path)
	require.NoError(t, reopened.Load())
	entries := reopened.All()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "survives restart", entries[0].Text)
}

func TestPersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "knowledge.json"))

	id, err := s.Append("kept", []float32{1})
	require.NoError(t, err)

	// Replace the snapshot path with a directory so the rename fails.
	s.mu.Lock()
	s.path = dir
	s.mu.Unlock()

	_, err = s.Append("lost", []float32{2})
	require.Error(t, err)

	// In-memory state must match the last successful snapshot.
	entries := s.All()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Append("concurrent entry", []float32{1, 0})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())

	// The durable file parses and exactly reflects memory.
	onDisk := readSnapshot(t, s.path)
	assert.Len(t, onDisk, n)
}

func TestErrorsAreDistinguishable(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrDimensionMismatch))
}
