// Package gateway is the HTTP surface of the grounder service: the public
// chat endpoint (plain POST and WebSocket), the token-guarded knowledge and
// admin endpoints, and the health probe. Handlers translate the agent's error
// taxonomy into status codes and never leak internal detail to clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"grounder/internal/agent"
	"grounder/internal/ai"
	"grounder/internal/audit"
	"grounder/internal/config"
	"grounder/internal/knowledge"
	"grounder/internal/middleware"
	"grounder/internal/ratelimit"
	"grounder/internal/sessions"
)

// sessionHeader carries the caller-chosen conversation identifier. Requests
// without it fall back to the client network origin.
const sessionHeader = "X-Session-ID"

// Gateway wires the stores and the chat agent to HTTP.
type Gateway struct {
	config   *config.Config
	agent    *agent.Agent
	store    *knowledge.Store
	sessions *sessions.Store
	embedder ai.Embedder              // nil when unconfigured
	auditLog *audit.Log               // nil when disabled
	limiter  *ratelimit.SlidingWindow // nil when disabled

	upgrader websocket.Upgrader
	server   *http.Server
}

// New creates a Gateway. The embedder, audit log, and limiter are optional;
// handlers degrade per capability when they are nil.
func New(cfg *config.Config, chatAgent *agent.Agent, store *knowledge.Store, sessionStore *sessions.Store, embedder ai.Embedder, auditLog *audit.Log, limiter *ratelimit.SlidingWindow) *Gateway {
	return &Gateway{
		config:   cfg,
		agent:    chatAgent,
		store:    store,
		sessions: sessionStore,
		embedder: embedder,
		auditLog: auditLog,
		limiter:  limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive the gateway through httptest.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	chat := http.Handler(http.HandlerFunc(g.handleChat))
	if g.limiter != nil {
		chat = middleware.RateLimit(g.limiter, sessionHeader)(chat)
	}
	mux.Handle("/chat", chat)
	mux.HandleFunc("/ws/chat", g.handleWSChat)
	mux.HandleFunc("/health", g.handleHealth)

	admin := middleware.AdminAuth(g.config.AdminToken)
	mux.Handle("/knowledge", admin(http.HandlerFunc(g.handleKnowledge)))
	mux.Handle("/knowledge/", admin(http.HandlerFunc(g.handleKnowledgeByID)))
	mux.Handle("/admin/sessions", admin(http.HandlerFunc(g.handleAdminSessions)))
	mux.Handle("/admin/usage", admin(http.HandlerFunc(g.handleAdminUsage)))

	return mux
}

// Start runs the HTTP server until Shutdown is called or the listener fails.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf(":%d", g.config.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Gateway listening on %s (knowledge entries: %d)", addr, g.store.Len())
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// sessionID resolves the conversation identifier for a request: the session
// header when present, otherwise the client host.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
