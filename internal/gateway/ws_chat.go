package gateway

import (
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"grounder/internal/ai"
)

// wsChatRequest is one inbound chat frame. Session is optional; absent, the
// connection's client host scopes the conversation, so all frames on one
// connection share a session by default.
type wsChatRequest struct {
	Question string `json:"question"`
	Session  string `json:"session,omitempty"`
}

// wsChatResponse is one outbound frame: either an answer or an error.
type wsChatResponse struct {
	Answer string `json:"answer,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWSChat handles GET /ws/chat. Each frame runs the same orchestrator
// path as POST /chat; the connection stays open until the client goes away.
func (g *Gateway) handleWSChat(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	fallbackSession := r.Header.Get(sessionHeader)
	if fallbackSession == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			fallbackSession = host
		} else {
			fallbackSession = r.RemoteAddr
		}
	}

	log.Printf("WebSocket chat connected (session: %s)", fallbackSession)

	for {
		var req wsChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		session := req.Session
		if session == "" {
			session = fallbackSession
		}

		started := time.Now()
		answer, err := g.agent.Chat(r.Context(), session, req.Question)
		if err != nil {
			g.recordAudit(session, "error", 0, ai.Usage{}, started)
			_, message := chatErrorStatus(err)
			log.Printf("WebSocket chat failed (session: %s): %v", session, err)
			if werr := conn.WriteJSON(wsChatResponse{Error: message}); werr != nil {
				return
			}
			continue
		}

		g.recordAudit(session, string(answer.Mode), answer.TopScore, answer.Usage, started)
		if err := conn.WriteJSON(wsChatResponse{Answer: answer.Text, Mode: string(answer.Mode)}); err != nil {
			return
		}
	}
}
