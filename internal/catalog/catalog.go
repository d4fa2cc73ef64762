// Package catalog manages items across storage, the vector index and the keyword index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/keyword"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
)

const rebuildBatch = 500

// Catalog creates, updates and deactivates items. Item embeddings are computed synchronously,
// so an item is discoverable as soon as Create returns.
type Catalog struct {
	store    storage.Storage
	embedder embedding.Embedder
	vectors  vector.VectorIndex
	keywords keyword.ItemIndex // optional
	logger   *zap.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithKeywordIndex keeps kw in sync with active items.
func WithKeywordIndex(kw keyword.ItemIndex) Option {
	return func(c *Catalog) { c.keywords = kw }
}

// New creates a catalog.
func New(store storage.Storage, embedder embedding.Embedder, vectors vector.VectorIndex, opts ...Option) *Catalog {
	c := &Catalog{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create validates in, embeds the item and stores it. A missing ID gets a new UUID.
func (c *Catalog) Create(ctx context.Context, in *models.ItemInput) (*models.Item, error) {
	item := &models.Item{ID: strings.TrimSpace(in.ID), Active: true, CreatedAt: in.CreatedAt}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := apply(item, in); err != nil {
		return nil, err
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	if err := c.embed(ctx, item); err != nil {
		return nil, err
	}
	if err := c.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := c.index(ctx, item); err != nil {
		return nil, err
	}
	c.logger.Debug("item created", zap.String("item_id", item.ID))
	return item, nil
}

// Update applies the non-nil fields of in. When the title, company, description or tags
// change, the embedding is recomputed and replaces the indexed vector.
func (c *Catalog) Update(ctx context.Context, id string, in *models.ItemInput) (*models.Item, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(item, in); err != nil {
		return nil, err
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	if in.ContentChanged() {
		if err := c.embed(ctx, item); err != nil {
			return nil, err
		}
	}
	if err := c.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	if item.Active {
		if err := c.index(ctx, item); err != nil {
			return nil, err
		}
	}
	c.logger.Debug("item updated", zap.String("item_id", id), zap.Bool("reembedded", in.ContentChanged()))
	return item, nil
}

// Deactivate soft-deletes an item and removes it from the search indices.
func (c *Catalog) Deactivate(ctx context.Context, id string) error {
	if err := c.store.DeactivateItem(ctx, id); err != nil {
		return err
	}
	if err := c.vectors.Remove(ctx, []string{id}); err != nil {
		return indexUnavailable("remove vector", err)
	}
	if c.keywords != nil {
		if err := c.keywords.Delete(ctx, id); err != nil {
			return indexUnavailable("remove keywords", err)
		}
	}
	c.logger.Debug("item deactivated", zap.String("item_id", id))
	return nil
}

// Get returns an item by ID.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Item, error) {
	return c.store.GetItem(ctx, id)
}

// SearchResult is the outcome of a keyword search.
type SearchResult struct {
	Items []*models.Item `json:"items"`
	// Suggestion is a corrected query, set when the query matched nothing and a correction exists.
	Suggestion string `json:"suggestion,omitempty"`
}

// Search runs a keyword search over active items.
func (c *Catalog) Search(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) (*SearchResult, error) {
	if c.keywords == nil {
		return nil, fmt.Errorf("keyword search: %w", models.ErrUnavailable)
	}
	hits, err := c.keywords.Search(ctx, query, limit, opts)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			return nil, err
		}
		return nil, indexUnavailable("keyword search", err)
	}
	res := &SearchResult{Items: make([]*models.Item, 0, len(hits))}
	if len(hits) == 0 {
		if s, changed, err := c.keywords.Suggest(ctx, query); err == nil && changed {
			res.Suggestion = s
		}
		return res, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := c.store.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if item, ok := byID[id]; ok && item.Active {
			res.Items = append(res.Items, item)
		}
	}
	return res, nil
}

// Rebuild re-adds every active item to the vector and keyword indices and returns how many
// were indexed. It repairs indices that were lost or opened empty.
func (c *Catalog) Rebuild(ctx context.Context) (int, error) {
	n := 0
	for offset := 0; ; offset += rebuildBatch {
		items, err := c.store.ListItems(ctx, true, offset, rebuildBatch)
		if err != nil {
			return n, err
		}
		ids := make([]string, 0, len(items))
		vecs := make([][]float32, 0, len(items))
		for _, item := range items {
			if len(item.Embedding) != c.embedder.Dimensions() {
				c.logger.Warn("skipping item with wrong embedding dimension",
					zap.String("item_id", item.ID), zap.Int("dimension", len(item.Embedding)))
				continue
			}
			ids = append(ids, item.ID)
			vecs = append(vecs, item.Embedding)
			if c.keywords != nil {
				if err := c.keywords.IndexItem(ctx, item); err != nil {
					return n, indexUnavailable("index keywords", err)
				}
			}
		}
		if len(ids) > 0 {
			if err := c.vectors.Add(ctx, ids, vecs); err != nil {
				return n, indexUnavailable("add vectors", err)
			}
		}
		n += len(ids)
		if len(items) < rebuildBatch {
			break
		}
	}
	c.logger.Info("catalog indices rebuilt", zap.Int("items", n))
	return n, nil
}

func (c *Catalog) embed(ctx context.Context, item *models.Item) error {
	emb, err := c.embedder.Embed(ctx, embedding.ItemText(item))
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("embed item: %w: %w", models.ErrUnavailable, err)
	}
	item.Embedding = emb
	return nil
}

func (c *Catalog) index(ctx context.Context, item *models.Item) error {
	if err := c.vectors.Add(ctx, []string{item.ID}, [][]float32{item.Embedding}); err != nil {
		return indexUnavailable("add vector", err)
	}
	if c.keywords != nil {
		if err := c.keywords.IndexItem(ctx, item); err != nil {
			return indexUnavailable("index keywords", err)
		}
	}
	return nil
}

func indexUnavailable(op string, err error) error {
	if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrUnavailable, err)
}

// apply copies the non-nil fields of in onto item.
func apply(item *models.Item, in *models.ItemInput) error {
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Company != nil {
		item.Company = strings.TrimSpace(*in.Company)
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		item.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Seniority != nil {
		s, err := models.ParseSeniority(*in.Seniority)
		if err != nil {
			return err
		}
		item.Seniority = s
	}
	if in.Location != nil {
		item.Location = strings.TrimSpace(*in.Location)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return nil
}

func validate(item *models.Item) error {
	if item.Title == "" {
		return fmt.Errorf("%w: item title is required", models.ErrInvalidInput)
	}
	return nil
}
