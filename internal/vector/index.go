// Package vector provides candidate retrieval over item embeddings.
package vector

import (
	"context"
	"sort"
)

// Candidate is a single nearest-neighbour hit. Distance is cosine distance (1 - cosine similarity).
type Candidate struct {
	ItemID   string
	Distance float64
}

// CandidateSource returns the items nearest to a query vector.
//
// Results are ordered by ascending distance with ties broken by item ID, never contain an
// excluded ID, and hold at most k entries. Fewer than k eligible items is not an error.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, query []float32, exclude map[string]struct{}, k int) ([]Candidate, error)
}

// VectorIndex is a mutable CandidateSource keyed by item ID.
type VectorIndex interface {
	CandidateSource
	// Add inserts vectors, replacing any existing vector stored under the same ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Type() string
	Close() error
}

// sortCandidates orders by ascending distance, then item ID.
func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Distance != c[j].Distance {
			return c[i].Distance < c[j].Distance
		}
		return c[i].ItemID < c[j].ItemID
	})
}
