package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"post-discharge-assistant/internal/metrics"
)

const (
	DefaultTopK = 4

	NoContextMessage = "No relevant information found in the reference materials."
)

// Passage is a retrieved span of the reference corpus with its source label.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

type Retriever struct {
	index    *Index
	embedder Embedder
	topK     int
	log      zerolog.Logger
}

func NewRetriever(index *Index, embedder Embedder, topK int, log zerolog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, embedder: embedder, topK: topK, log: log}
}

// Retrieve returns the top passages for query, most relevant first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	if r.index == nil {
		return nil, fmt.Errorf("reference index is not loaded")
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.index.Search(vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	passages := make([]Passage, 0, len(hits))
	for _, h := range hits {
		source := h.Chunk.Source
		if source == "" {
			source = "Unknown"
		}
		passages = append(passages, Passage{Text: h.Chunk.Text, Source: source, Score: h.Score})
	}
	return passages, nil
}

// Context is the chat-turn form of Retrieve: it always yields text. Failures
// become an explanatory placeholder so the turn can still complete.
func (r *Retriever) Context(ctx context.Context, query string) string {
	passages, err := r.Retrieve(ctx, query)
	if err != nil {
		metrics.RecordRetrievalFailure()
		r.log.Error().Err(err).Msg("Reference retrieval failed")
		return fmt.Sprintf("Error: An unexpected error occurred while searching the reference materials: %v", err)
	}
	if len(passages) == 0 {
		r.log.Info().Msg("No relevant reference context found")
		return NoContextMessage
	}
	r.log.Debug().Int("chunks", len(passages)).Msg("Retrieved reference context")
	return FormatPassages(passages)
}

func FormatPassages(passages []Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "--- Relevant Context Chunk %d (Source: %s) ---\n", i+1, p.Source)
		b.WriteString(p.Text)
		b.WriteString("\n---------------------------------------------------\n")
	}
	return b.String()
}
