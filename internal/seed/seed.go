// Package seed bulk-loads knowledge entries from a YAML file. Used by the
// seed subcommand to populate a fresh store without driving the HTTP API.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"grounder/internal/ai"
	"grounder/internal/knowledge"
)

// File is the seed file layout:
//
//	entries:
//	  - text: "First fact"
//	  - text: "Second fact"
type File struct {
	Entries []EntryInput `yaml:"entries"`
}

// EntryInput is one snippet to ingest.
type EntryInput struct {
	Text string `yaml:"text"`
}

// Run parses the seed file, embeds every non-empty snippet in one batch, and
// appends them to the store. Returns the number of entries added.
func Run(ctx context.Context, path string, embedder ai.Embedder, store *knowledge.Store) (int, error) {
	if embedder == nil {
		return 0, fmt.Errorf("embedding provider is not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	var texts []string
	for _, entry := range file.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	log.Printf("Seeding %d entries from %s", len(texts), path)
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed seed entries: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts))
	}

	added := 0
	for i, text := range texts {
		if _, err := store.Append(text, vectors[i]); err != nil {
			return added, fmt.Errorf("failed to save seed entry %d: %w", i+1, err)
		}
		added++
	}

	return added, nil
}
