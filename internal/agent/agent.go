// Package agent orchestrates one chat turn: embed the question, rank it
// against the knowledge base, decide grounded vs. general mode, assemble the
// prompt with session history, call the completion provider, and record the
// finished turn. All state the agent touches is injected; it owns nothing
// global.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grounder/internal/ai"
	"grounder/internal/knowledge"
	"grounder/internal/retrieval"
	"grounder/internal/sessions"
)

// ErrInvalidRequest indicates missing or malformed caller input.
var ErrInvalidRequest = errors.New("agent: invalid request")

// personaPrompt is the fixed system instruction sent on every request.
// Retrieved context, when present, is appended after it.
const personaPrompt = "You are a helpful assistant backed by a curated knowledge base. " +
	"Answer clearly and concisely. When knowledge base context is provided below, " +
	"ground your answer in it; otherwise answer from general knowledge."

const (
	defaultTopK      = 3
	defaultThreshold = 0.45
)

// Config tunes retrieval and completion for the agent. Threshold is a
// pointer because 0 is a meaningful cutoff (cosine scores can be negative):
// nil means "use the default", a pointer to 0 means exactly 0.
type Config struct {
	TopK      int      // chunks injected in grounded mode
	Threshold *float32 // relevance cutoff, exclusive; nil for the default
	MaxTokens int      // completion token budget, 0 for provider default
}

// Agent coordinates the stores and upstream gateways for chat requests.
// Provider and embedder may be nil when unconfigured; every call site treats
// the absent capability as an upstream-unavailable outcome rather than
// crashing on a nil.
type Agent struct {
	provider  ai.Provider
	embedder  ai.Embedder
	store     *knowledge.Store
	sessions  *sessions.Store
	topK      int
	threshold float32
	maxTokens int
}

// Answer is the result of one successful chat turn.
type Answer struct {
	Text     string
	Mode     retrieval.Mode
	TopScore float32
	Usage    ai.Usage
}

// New creates an Agent. Unset config values fall back to defaults.
func New(provider ai.Provider, embedder ai.Embedder, store *knowledge.Store, sessionStore *sessions.Store, cfg Config) *Agent {
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := float32(defaultThreshold)
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}
	return &Agent{
		provider:  provider,
		embedder:  embedder,
		store:     store,
		sessions:  sessionStore,
		topK:      topK,
		threshold: threshold,
		maxTokens: cfg.MaxTokens,
	}
}

// Chat runs one full request. Steps are strictly sequential; nothing is
// committed to conversation memory unless the completion call succeeds.
func (a *Agent) Chat(ctx context.Context, sessionID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}

	if a.provider == nil {
		return nil, fmt.Errorf("%w: no completion provider configured", ai.ErrUnavailable)
	}

	decision := retrieval.Decision{Mode: retrieval.ModeGeneral}
	var topScore float32

	// An empty knowledge base skips retrieval entirely, embedding included.
	// This is a distinct path from "ranked but below threshold".
	if a.store.Len() > 0 {
		if a.embedder == nil {
			return nil, fmt.Errorf("%w: no embedder configured", ai.ErrUnavailable)
		}

		vectors, err := a.embedder.Embed(ctx, []string{question})
		if err != nil {
			return nil, fmt.Errorf("embed question: %w", err)
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for one input", ai.ErrUnavailable, len(vectors))
		}

		chunks := retrieval.Rank(vectors[0], a.store.All(), a.topK)
		if len(chunks) > 0 {
			topScore = chunks[0].Score
		}
		decision = retrieval.Route(topScore, chunks, a.threshold)
	}

	messages := a.buildMessages(sessionID, question, decision.Context)

	resp, err := a.provider.GenerateResponse(ctx, &ai.GenerateRequest{
		Messages:  messages,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	// The turn is committed only now, after full success.
	a.sessions.Append(sessionID, question, resp.Content)

	return &Answer{
		Text:     resp.Content,
		Mode:     decision.Mode,
		TopScore: topScore,
		Usage:    resp.Usage,
	}, nil
}

// buildMessages assembles the outbound sequence: one system message carrying
// the persona plus any retrieved context, the session's prior turns, then
// the new user turn.
func (a *Agent) buildMessages(sessionID, question, contextText string) []ai.ChatMessage {
	system := personaPrompt
	if contextText != "" {
		system += "\n\nKnowledge base context:\n\n" + contextText
	}

	messages := []ai.ChatMessage{{Role: "system", Content: system}}

	for _, msg := range a.sessions.History(sessionID) {
		if msg.Content == "" {
			continue
		}
		messages = append(messages, ai.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	return append(messages, ai.ChatMessage{Role: "user", Content: question})
}
