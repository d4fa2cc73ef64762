package vector

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkMemoryIndexFetchCandidates(b *testing.B) {
	const dims, n = 384, 5000
	idx, _ := NewMemoryIndex(dims)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = fmt.Sprintf("item-%d", i)
		vecs[i] = make([]float32, dims)
		for j := range vecs[i] {
			vecs[i][j] = float32(rng.NormFloat64())
		}
	}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		b.Fatal(err)
	}
	exclude := map[string]struct{}{"item-1": {}, "item-2": {}}
	query := vecs[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.FetchCandidates(ctx, query, exclude, 300)
	}
}
