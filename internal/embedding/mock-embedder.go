package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/pkg/utils"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and model-less deployments.
// Each lowercased word is hashed onto a signed bucket, so texts sharing words land close together.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a unit-norm embedding. Text without words is rejected.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := SplitWords(strings.ToLower(text))
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: no words to embed", models.ErrInvalidInput)
	}
	emb := make([]float32, e.dimensions)
	for _, w := range words {
		w = strings.Trim(w, ".,;:|()[]{}\"'")
		if w == "" {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimensions))
		if sum&(1<<63) != 0 {
			emb[bucket] -= 1
		} else {
			emb[bucket] += 1
		}
	}
	if !utils.NormalizeL2(emb) {
		// Only punctuation, or every word cancelled out.
		emb[HashString(text)%e.dimensions] = 1
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
