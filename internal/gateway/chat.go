package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"grounder/internal/agent"
	"grounder/internal/ai"
	"grounder/internal/audit"
)

// handleChat handles POST /chat
// Request: {"question": "..."}
// Response: {"answer": "..."}
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	session := sessionID(r)
	started := time.Now()

	answer, err := g.agent.Chat(r.Context(), session, req.Question)
	if err != nil {
		g.recordAudit(session, "error", 0, ai.Usage{}, started)
		status, message := chatErrorStatus(err)
		log.Printf("Chat request failed (session: %s): %v", session, err)
		writeJSONError(w, status, message)
		return
	}

	g.recordAudit(session, string(answer.Mode), answer.TopScore, answer.Usage, started)
	log.Printf("Chat answered in %s mode (session: %s, top score: %.3f)", answer.Mode, session, answer.TopScore)

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer.Text})
}

// chatErrorStatus maps the agent's error taxonomy to a status code and a
// client-safe message.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrInvalidRequest):
		return http.StatusBadRequest, "question is required"
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, "upstream rate limited, try again later"
	case errors.Is(err, ai.ErrUnavailable):
		return http.StatusInternalServerError, "completion service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// recordAudit writes one audit row, best effort.
func (g *Gateway) recordAudit(session, mode string, topScore float32, usage ai.Usage, started time.Time) {
	if g.auditLog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := g.auditLog.Record(ctx, audit.Record{
		SessionID:        session,
		Mode:             mode,
		TopScore:         topScore,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMs:        time.Since(started).Milliseconds(),
	})
	if err != nil {
		log.Printf("WARNING: failed to record audit row: %v", err)
	}
}
