package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for catalogs up to tens of thousands of items.
	IndexTypeMemory IndexType = "memory"
	// IndexTypePGVector stores vectors in PostgreSQL with the pgvector extension.
	IndexTypePGVector IndexType = "pgvector"
)

// NewVectorIndex creates the vector index selected by cfg.
// The memory index is loaded from cfg.IndexPath when the file exists.
func NewVectorIndex(ctx context.Context, cfg config.VectorConfig, dimensions int, logger *zap.Logger) (VectorIndex, error) {
	switch IndexType(cfg.IndexType) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(cfg.IndexPath); err != nil {
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
		return idx, nil
	case IndexTypePGVector:
		idx, err := OpenPGVectorIndex(ctx, cfg.PostgresDSN, cfg.Table, dimensions, WithPGLogger(logger))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, pgvector)", cfg.IndexType)
	}
}
