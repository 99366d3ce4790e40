package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"grounder/internal/version"
)

const (
	defaultEmbedModel = "text-embedding-3-small"
	defaultEmbedDims  = 1536
	openAIEmbedURL    = "https://api.openai.com/v1/embeddings"
	embedMaxRetries   = 3
)

// Compile-time interface check.
var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	baseURL    string // configurable for testing; defaults to openAIEmbedURL
}

// NewOpenAIEmbedder creates a new OpenAI embedding provider.
// model can be empty (defaults to "text-embedding-3-small").
// dims can be 0 (defaults to 1536).
func NewOpenAIEmbedder(apiKey, model string, dims int) *OpenAIEmbedder {
	if model == "" {
		model = defaultEmbedModel
	}
	if dims <= 0 {
		dims = defaultEmbedDims
	}
	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: dims,
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    openAIEmbedURL,
	}
}

func (o *OpenAIEmbedder) Name() string    { return "openai:" + o.model }
func (o *OpenAIEmbedder) Dimensions() int { return o.dimensions }

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed sends texts to the OpenAI embeddings API and returns vectors.
// Transient failures (429, 5xx, transport errors) are retried with bounded
// exponential backoff; the whole call still counts as a single attempt from
// the caller's point of view.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(openAIEmbedRequest{
		Model:      o.model,
		Input:      texts,
		Dimensions: o.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: marshal request: %w", err)
	}

	var resp openAIEmbedResponse
	var lastErr error

	for attempt := 0; attempt <= embedMaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("openai embed: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
		req.Header.Set("User-Agent", version.UserAgent())

		httpResp, err := o.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: openai embed: request failed: %v", ErrUnavailable, err)
			continue
		}

		respBody, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: openai embed: read response: %v", ErrUnavailable, err)
			continue
		}

		if httpResp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: openai embed: 429", ErrRateLimited)
			continue
		}

		if httpResp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: openai embed: API error %d", ErrUnavailable, httpResp.StatusCode)
			// Don't retry non-retryable errors
			if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
				return nil, lastErr
			}
			continue
		}

		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("%w: openai embed: unmarshal response: %v", ErrUnavailable, err)
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai embed: got %d embeddings for %d inputs", ErrUnavailable, len(resp.Data), len(texts))
	}

	// The API documents data in input order, but index is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: openai embed: embedding index %d out of range", ErrUnavailable, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}
