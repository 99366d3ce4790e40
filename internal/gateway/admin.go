package gateway

import (
	"net/http"

	"grounder/internal/version"
)

// handleAdminSessions handles GET /admin/sessions
// Response: {"sessions": {"<id>": [{role, content, timestamp}, ...]}, "count": N}
func (g *Gateway) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snapshot := g.sessions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": snapshot,
		"count":    len(snapshot),
	})
}

// handleAdminUsage handles GET /admin/usage
// Response: aggregated audit counters (requests, modes, tokens, latency).
func (g *Gateway) handleAdminUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if g.auditLog == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "audit log not enabled")
		return
	}

	summary, err := g.auditLog.Summarize(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to summarize usage")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleHealth handles GET /health (unauthenticated liveness probe).
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"version":          version.Info(),
		"knowledgeEntries": g.store.Len(),
		"activeSessions":   g.sessions.Len(),
		"embedding":        g.embedder != nil,
		"audit":            g.auditLog != nil,
	})
}
