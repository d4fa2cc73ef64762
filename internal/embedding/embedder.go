// Package embedding provides text embedding via ONNX and caching.
package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewEmbedder returns the ONNX embedder for cfg, or the deterministic mock embedder when
// cfg.Mock is set or the ONNX runtime cannot be initialized.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mock {
		logger.Info("using mock embedder", zap.Int("dimensions", cfg.Dimensions))
		return NewMockEmbedder(cfg.Dimensions)
	}
	onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
	if err != nil {
		logger.Warn("onnx embedder unavailable, falling back to mock embedder",
			zap.String("model_path", cfg.ModelPath), zap.Error(err))
		return NewMockEmbedder(cfg.Dimensions)
	}
	return onnx
}
