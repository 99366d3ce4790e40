package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"grounder/internal/knowledge"
)

// handleKnowledge handles the collection endpoints.
// POST /knowledge {"text": "..."} -> {"status": "Saved", "totalEntries": N}
// GET  /knowledge                 -> {"entries": [...], "count": N}
func (g *Gateway) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		g.handleKnowledgeAdd(w, r)
	case http.MethodGet:
		g.handleKnowledgeList(w, r)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (g *Gateway) handleKnowledgeAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	vector, ok := g.embedText(w, r, req.Text)
	if !ok {
		return
	}

	id, err := g.store.Append(req.Text, vector)
	if err != nil {
		log.Printf("Failed to save knowledge entry: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}

	log.Printf("Knowledge entry saved: %s (%d chars, %d total)", id, len(req.Text), g.store.Len())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "Saved",
		"id":           id,
		"totalEntries": g.store.Len(),
	})
}

func (g *Gateway) handleKnowledgeList(w http.ResponseWriter, r *http.Request) {
	entries := g.store.All()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleKnowledgeByID handles the per-entry endpoints.
// PUT    /knowledge/{id} {"text": "..."} -> re-embed and replace
// DELETE /knowledge/{id}                 -> 200 whether or not the id existed
func (g *Gateway) handleKnowledgeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/knowledge/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "entry not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		g.handleKnowledgeUpdate(w, r, id)
	case http.MethodDelete:
		g.handleKnowledgeDelete(w, r, id)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (g *Gateway) handleKnowledgeUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	vector, ok := g.embedText(w, r, req.Text)
	if !ok {
		return
	}

	if err := g.store.Update(id, req.Text, vector); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Printf("Failed to update knowledge entry %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "Updated",
		"id":     id,
	})
}

func (g *Gateway) handleKnowledgeDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := g.store.Delete(id); err != nil {
		log.Printf("Failed to delete knowledge entry %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "Deleted",
		"totalEntries": g.store.Len(),
	})
}

// embedText embeds a single text, writing the error response itself when the
// embedder is absent or the call fails. The bool reports success.
func (g *Gateway) embedText(w http.ResponseWriter, r *http.Request, text string) ([]float32, bool) {
	if g.embedder == nil {
		writeJSONError(w, http.StatusInternalServerError, "embedding service unavailable")
		return nil, false
	}
	vectors, err := g.embedder.Embed(r.Context(), []string{text})
	if err != nil || len(vectors) == 0 {
		log.Printf("Embedding failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "embedding service unavailable")
		return nil, false
	}
	return vectors[0], true
}
