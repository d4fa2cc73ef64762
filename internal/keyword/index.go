// Package keyword provides full-text search over catalog items.
package keyword

import (
	"context"

	"github.com/hyperjump/matchfeed/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables typo-tolerant matching.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 1.
	Fuzziness int
}

// ItemIndex defines keyword search operations over items.
type ItemIndex interface {
	IndexItem(ctx context.Context, item *models.Item) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	// Suggest returns a corrected query built from indexed terms, and whether anything changed.
	Suggest(ctx context.Context, query string) (string, bool, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
