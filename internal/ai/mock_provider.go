package ai

import (
	"context"
	"sync"
)

// MockProvider is a test provider that records calls and returns configurable
// responses.
type MockProvider struct {
	name      string
	responses []MockResponse
	calls     []MockCall
	mu        sync.Mutex
	respIndex int
}

// MockResponse represents a pre-configured response for the mock provider
type MockResponse struct {
	Content string
	Usage   Usage
	Error   error
}

// MockCall records information about a call to GenerateResponse
type MockCall struct {
	Request *GenerateRequest
}

// NewMockProvider creates a new mock provider for testing
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return m.name
}

// GenerateResponse records the call and returns the next configured response
func (m *MockProvider) GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deep-copy the messages so assertions see what was sent, not what the
	// caller mutated afterwards.
	cp := *req
	cp.Messages = append([]ChatMessage(nil), req.Messages...)
	m.calls = append(m.calls, MockCall{Request: &cp})

	if m.respIndex < len(m.responses) {
		resp := m.responses[m.respIndex]
		m.respIndex++

		if resp.Error != nil {
			return nil, resp.Error
		}
		return &GenerateResponse{Content: resp.Content, Usage: resp.Usage}, nil
	}

	return &GenerateResponse{
		Content: "Mock response",
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// SetResponses configures the responses returned by GenerateResponse, in order.
func (m *MockProvider) SetResponses(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.respIndex = 0
}

// Calls returns a copy of the recorded calls
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// MockEmbedder is a test embedder returning canned vectors keyed by input
// text, with a fallback vector for unknown inputs.
type MockEmbedder struct {
	mu       sync.Mutex
	dims     int
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    []string
}

// NewMockEmbedder creates a mock embedder with the given dimensionality.
func NewMockEmbedder(dims int) *MockEmbedder {
	fallback := make([]float32, dims)
	if dims > 0 {
		fallback[0] = 1
	}
	return &MockEmbedder{
		dims:     dims,
		vectors:  make(map[string][]float32),
		fallback: fallback,
	}
}

func (m *MockEmbedder) Name() string    { return "mock" }
func (m *MockEmbedder) Dimensions() int { return m.dims }

// SetVector fixes the vector returned for a specific input text.
func (m *MockEmbedder) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vec
}

// SetError makes every Embed call fail with err.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the texts that have been embedded so far.
func (m *MockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		m.calls = append(m.calls, t)
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = m.fallback
		}
	}
	return out, nil
}
