// Package retrieval scores a query embedding against the knowledge base and
// decides whether a chat turn is answered in grounded mode (retrieved context
// injected) or general mode (model knowledge only). Scoring is brute force
// over all entries; at the expected corpus size an ANN index would be
// overkill.
package retrieval

import (
	"math"
	"sort"
	"strings"

	"grounder/internal/knowledge"
)

// Mode is the routing decision for one chat turn.
type Mode string

const (
	ModeGrounded Mode = "grounded"
	ModeGeneral  Mode = "general"
)

// Chunk is a ranked retrieval result. Ephemeral: produced per query and
// discarded after prompt assembly.
type Chunk struct {
	Text  string
	Score float32
}

// Decision is the output of Route.
type Decision struct {
	Mode    Mode
	Context string
}

// DotProduct computes the dot product of two vectors.
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm computes the L2 norm (magnitude) of a vector.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(DotProduct(v, v))))
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 1 for identical directions, 0 for perpendicular, -1 for opposite.
// A zero-norm vector on either side scores 0 rather than NaN, and a length
// mismatch scores 0 rather than panicking or truncating: similarity across
// different embedding spaces is meaningless.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	dot := DotProduct(a, b)
	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// Rank scores query against every entry and returns the top k chunks by
// similarity, descending. Ties keep store order (stable sort) so results are
// deterministic. k is clamped to the store size; k <= 0 returns nil.
func Rank(query []float32, entries []knowledge.Entry, k int) []Chunk {
	if k <= 0 || len(entries) == 0 {
		return nil
	}

	chunks := make([]Chunk, len(entries))
	for i, e := range entries {
		chunks[i] = Chunk{
			Text:  e.Text,
			Score: CosineSimilarity(query, e.Embedding),
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})

	if k > len(chunks) {
		k = len(chunks)
	}
	return chunks[:k]
}

// Route applies the relevance threshold to the top score. Strictly greater
// than the threshold routes grounded, with the chunk texts joined by a blank
// line in descending-score order; a top score equal to the threshold routes
// general. This is a hard cutoff, not a blend: low-confidence retrieval must
// not leak irrelevant context into the prompt.
func Route(topScore float32, chunks []Chunk, threshold float32) Decision {
	if len(chunks) == 0 || topScore <= threshold {
		return Decision{Mode: ModeGeneral}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	return Decision{
		Mode:    ModeGrounded,
		Context: strings.Join(texts, "\n\n"),
	}
}
