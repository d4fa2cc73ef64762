package vector

import (
	"context"
	"testing"

	"github.com/hyperjump/matchfeed/internal/config"
)

func TestNewVectorIndex_Memory(t *testing.T) {
	idx, err := NewVectorIndex(context.Background(), config.VectorConfig{IndexType: "memory"}, 3, nil)
	if err != nil {
		t.Fatalf("NewVectorIndex(memory): %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
	if idx.Type() != "memory" {
		t.Errorf("Type=%s", idx.Type())
	}
}

func TestNewVectorIndex_Empty(t *testing.T) {
	idx, err := NewVectorIndex(context.Background(), config.VectorConfig{}, 3, nil)
	if err != nil {
		t.Fatalf("NewVectorIndex(''): %v", err)
	}
	defer idx.Close()
	if idx.Size() != 0 {
		t.Errorf("Size=%d, want 0", idx.Size())
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	_, err := NewVectorIndex(context.Background(), config.VectorConfig{IndexType: "unknown"}, 3, nil)
	if err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewVectorIndex_InvalidDimension(t *testing.T) {
	_, err := NewVectorIndex(context.Background(), config.VectorConfig{IndexType: "memory"}, 0, nil)
	if err == nil {
		t.Error("expected error for zero dimension")
	}
}
