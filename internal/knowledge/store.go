// Package knowledge holds the curated knowledge base: an in-memory ordered
// list of (text, embedding) entries mirrored to a single JSON snapshot file.
// The snapshot is rewritten wholesale on every mutation; at the expected
// corpus size (tens to low thousands of entries) this is deliberately simpler
// than a log-structured format.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the referenced entry id does not exist.
	ErrNotFound = errors.New("knowledge: entry not found")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the embeddings already in the store.
	ErrDimensionMismatch = errors.New("knowledge: embedding dimension mismatch")

	// ErrEmptyEmbedding indicates a nil or zero-length embedding.
	ErrEmptyEmbedding = errors.New("knowledge: empty embedding")
)

// Entry is a single knowledge base record.
type Entry struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Embedding []float32  `json:"embedding"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Store is the in-memory knowledge base with a durable JSON snapshot.
// All mutating operations serialize against each other and against full-scan
// reads; a successful return guarantees the snapshot on disk matches memory.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
}

// NewStore creates a store persisting to the given snapshot path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the durable snapshot. It fails soft: a missing or malformed
// file leaves the store empty and logs a warning instead of aborting, so a
// corrupt snapshot never prevents startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARNING: failed to read knowledge snapshot %s, starting empty: %v", s.path, err)
		}
		s.entries = nil
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("WARNING: corrupt knowledge snapshot %s, starting empty: %v", s.path, err)
		s.entries = nil
		return nil
	}

	// The append/update paths keep dimensionality uniform, so a snapshot
	// with mixed-length embeddings was written by something else (or under
	// a different embedding model mid-file). Treat it like corruption.
	for i := range entries {
		if len(entries[i].Embedding) != len(entries[0].Embedding) {
			log.Printf("WARNING: knowledge snapshot %s has mixed embedding dimensions (%d vs %d), starting empty",
				s.path, len(entries[i].Embedding), len(entries[0].Embedding))
			s.entries = nil
			return nil
		}
	}

	s.entries = entries
	return nil
}

// Append adds a new entry and persists the snapshot. The id is generated
// here and returned; it is stable for the entry's lifetime. Fails when the
// embedding dimensionality differs from entries already present.
func (s *Store) Append(text string, embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", ErrEmptyEmbedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 && len(embedding) != len(s.entries[0].Embedding) {
		return "", fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, len(embedding), len(s.entries[0].Embedding))
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Text:      text,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}

	next := append(append([]Entry(nil), s.entries...), entry)
	if err := s.persist(next); err != nil {
		// Mutation is rolled back: memory keeps the pre-append state so it
		// never diverges from disk.
		return "", err
	}
	s.entries = next

	return entry.ID, nil
}

// Update replaces text and embedding of the entry matching id, sets
// UpdatedAt, and persists. Returns ErrNotFound for an unknown id.
func (s *Store) Update(id, text string, embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.entries {
		if s.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	// Dimensionality must stay uniform across the remaining entries.
	for i := range s.entries {
		if i != idx && len(embedding) != len(s.entries[i].Embedding) {
			return fmt.Errorf("%w: got %d, store has %d", ErrDimensionMismatch, len(embedding), len(s.entries[i].Embedding))
		}
	}

	now := time.Now().UTC()
	next := append([]Entry(nil), s.entries...)
	next[idx].Text = text
	next[idx].Embedding = embedding
	next[idx].UpdatedAt = &now

	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next

	return nil
}

// Delete removes the entry matching id and persists. Deleting an absent id
// is a no-op success (idempotent delete).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.entries {
		if s.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	next := append([]Entry(nil), s.entries[:idx]...)
	next = append(next, s.entries[idx+1:]...)

	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next

	return nil
}

// All returns a copy of the full entry sequence in store order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// persist rewrites the whole snapshot. Written to a temp file and renamed so
// a reader never observes a partial write. Caller holds the write lock.
func (s *Store) persist(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".knowledge-*.json")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write knowledge snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close knowledge snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace knowledge snapshot: %w", err)
	}

	return nil
}
