package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/matchfeed/internal/models"
)

// searchFields are the analyzed text fields of an item document.
var searchFields = []string{"title", "company", "description", "tags", "location"}

// itemDocument is the indexed form of an item.
type itemDocument struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	Seniority   string   `json:"seniority"`
}

// BleveIndex implements ItemIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory index.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so skill names such as "pandas"
	// match exactly.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	for _, f := range searchFields {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	docMapping.AddFieldMappingsAt("seniority", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexItem indexes an active item; inactive items are removed instead.
func (b *BleveIndex) IndexItem(ctx context.Context, item *models.Item) error {
	if !item.Active {
		return b.Delete(ctx, item.ID)
	}
	doc := itemDocument{
		Title:       item.Title,
		Company:     item.Company,
		Description: item.Description,
		Tags:        item.Tags,
		Location:    item.Location,
		Seniority:   item.Seniority.String(),
	}
	if err := b.index.Index(item.ID, doc); err != nil {
		return fmt.Errorf("failed to index item %s: %w", item.ID, err)
	}
	return nil
}

// Search runs a match query over all text fields and returns up to limit results.
// With opts.TitleBoost > 1, title matches are weighted higher than matches elsewhere.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", models.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 20
	}
	titleBoost := 1.0
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if opts.FuzzyEnabled {
			fuzziness = 1
			if opts.Fuzziness > 0 {
				fuzziness = opts.Fuzziness
			}
		}
	}

	queries := make([]blevequery.Query, 0, len(searchFields))
	for _, field := range searchFields {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		if fuzziness > 0 {
			mq.SetFuzziness(fuzziness)
		}
		if field == "title" && titleBoost != 1.0 {
			mq.SetBoost(titleBoost)
		}
		queries = append(queries, mq)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes an item from the index. Deleting a missing item is not an error.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed items.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// termFrequencies returns every indexed term with its document frequency across text fields.
func (b *BleveIndex) termFrequencies() (map[string]int, error) {
	freqs := make(map[string]int)
	for _, field := range searchFields {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			freqs[entry.Term] += int(entry.Count)
		}
		dict.Close()
	}
	return freqs, nil
}
