// Package feed orders scored items into a total order and cuts it into cursor-addressed pages.
package feed

import (
	"fmt"
	"sort"

	"github.com/hyperjump/matchfeed/internal/models"
)

// Scored is one candidate after scoring.
type Scored struct {
	ItemID    string
	Score     int
	Breakdown models.ScoreBreakdown
	Item      *models.Item
}

// Page is one slice of the ranked feed. NextCursor is empty unless HasMore.
type Page struct {
	Items      []Scored
	HasMore    bool
	NextCursor string
}

// Less reports whether a ranks before b: higher score first, then ascending item ID.
func Less(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ItemID < b.ItemID
}

// ranksAfter reports whether s ranks strictly after the cursor key.
func ranksAfter(s Scored, c *Cursor) bool {
	if s.Score != c.Score {
		return s.Score < c.Score
	}
	return s.ItemID > c.ItemID
}

// Sort orders scored in place by (score desc, item id asc).
func Sort(scored []Scored) {
	sort.Slice(scored, func(i, j int) bool { return Less(scored[i], scored[j]) })
}

// Paginate ranks scored and returns the page that starts strictly after the cursor key, or the
// first page when after is nil. The input slice is not modified.
func Paginate(scored []Scored, pageSize int, after *Cursor, generation int64) Page {
	if pageSize < 1 {
		pageSize = 1
	}
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	Sort(ranked)

	start := 0
	if after != nil {
		start = sort.Search(len(ranked), func(i int) bool { return ranksAfter(ranked[i], after) })
	}
	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}

	page := Page{Items: ranked[start:end:end], HasMore: end < len(ranked)}
	if page.HasMore {
		last := ranked[end-1]
		page.NextCursor = EncodeCursor(Cursor{Score: last.Score, ItemID: last.ItemID, Generation: generation})
	}
	return page
}

// ResolvePageSize applies the default to an unset size and rejects sizes outside [1, maxSize].
func ResolvePageSize(requested, def, maxSize int) (int, error) {
	if requested == 0 {
		requested = def
	}
	if requested < 1 || requested > maxSize {
		return 0, fmt.Errorf("%w: page size must be between 1 and %d, got %d", models.ErrInvalidInput, maxSize, requested)
	}
	return requested, nil
}
