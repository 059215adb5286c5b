// Package reference answers "what does the reference book say" by running a
// similarity search over a pre-built, read-only passage index.
package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// Chunk is one embedded passage of the reference corpus.
type Chunk struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Vector []float32 `json:"vector"`
}

type indexFile struct {
	Model  string  `json:"model"`
	Chunks []Chunk `json:"chunks"`
}

// Hit is a chunk scored against a query vector.
type Hit struct {
	Chunk Chunk
	Score float32
}

var ErrEmptyQueryVector = errors.New("empty query vector")

// Index is a brute-force cosine index. It is filled once and only read
// afterwards, so it carries no lock.
type Index struct {
	model  string
	chunks []Chunk
}

func NewIndex(model string, chunks []Chunk) *Index {
	cp := make([]Chunk, len(chunks))
	copy(cp, chunks)
	return &Index{model: model, chunks: cp}
}

// LoadIndex reads an index produced by the offline ingestion job.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference index: %w", err)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode reference index %s: %w", path, err)
	}
	for i, c := range f.Chunks {
		if len(c.Vector) == 0 {
			return nil, fmt.Errorf("reference index %s: chunk %d has no vector", path, i)
		}
	}
	return NewIndex(f.Model, f.Chunks), nil
}

// Model is the embedding model the index was built with.
func (idx *Index) Model() string { return idx.model }

func (idx *Index) Size() int { return len(idx.chunks) }

// Search returns up to k chunks, most similar first.
func (idx *Index) Search(vec []float32, k int) ([]Hit, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyQueryVector
	}
	if k <= 0 || len(idx.chunks) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		if len(c.Vector) != len(vec) {
			return nil, fmt.Errorf("dimension mismatch: query has %d, chunk %s has %d", len(vec), c.ID, len(c.Vector))
		}
		hits = append(hits, Hit{Chunk: c, Score: cosineSimilarity(vec, c.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
