package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder turns a query into the vector space the index was built in.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorCache stores query embeddings between requests.
type VectorCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}

type ollamaEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaEmbedder talks to the Ollama embeddings API.
func NewOllamaEmbedder(baseURL, model string) Embedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: %s - %s", resp.Status, string(body))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding API returned an empty vector")
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

type cachedEmbedder struct {
	next  Embedder
	model string
	cache VectorCache
}

// WithCache consults cache before calling next. Cache errors never fail the
// embedding; they only cost a recomputation.
func WithCache(next Embedder, model string, cache VectorCache) Embedder {
	if cache == nil {
		return next
	}
	return &cachedEmbedder{next: next, model: model, cache: cache}
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok, err := c.cache.Get(ctx, c.model, text); err == nil && ok {
		return vec, nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, c.model, text, vec)
	return vec, nil
}
