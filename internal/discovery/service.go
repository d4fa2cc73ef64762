// Package discovery assembles a user's personalized feed: candidate retrieval, hybrid scoring
// and cursor pagination.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/feed"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// Config holds discovery limits.
type Config struct {
	DefaultPageSize     int
	MaxPageSize         int
	CandidatePool       int
	ScaleWithExclusions bool
	ScoreWorkers        int
}

// ConfigFrom converts the config file section.
func ConfigFrom(cfg config.DiscoveryConfig) Config {
	return Config{
		DefaultPageSize:     cfg.DefaultPageSize,
		MaxPageSize:         cfg.MaxPageSize,
		CandidatePool:       cfg.CandidatePool,
		ScaleWithExclusions: cfg.ScaleWithExclusions,
		ScoreWorkers:        cfg.ScoreWorkers,
	}
}

// Service serves discovery requests. It only reads state.
type Service struct {
	store   storage.Storage
	index   vector.CandidateSource
	scorer  *ranking.Scorer
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a discovery service.
func NewService(store storage.Storage, index vector.CandidateSource, scorer *ranking.Scorer, cfg Config, opts ...Option) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.ScoreWorkers <= 0 {
		cfg.ScoreWorkers = 1
	}
	s := &Service{
		store:  store,
		index:  index,
		scorer: scorer,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns one page of userID's feed. pageSize 0 selects the default; an empty cursor
// starts from the top.
func (s *Service) Discover(ctx context.Context, userID string, pageSize int, cursor string, now time.Time) (*models.DiscoverResponse, error) {
	start := time.Now()
	resp, err := s.discover(ctx, userID, pageSize, cursor, now)
	status := metrics.StatusOK
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status = metrics.StatusInvalid
	case err != nil:
		status = metrics.StatusError
	}
	candidates := 0
	if resp != nil {
		candidates = resp.Candidates
		resp.QueryTime = time.Since(start).Milliseconds()
	}
	s.metrics.ObserveDiscover(status, time.Since(start).Seconds(), candidates)
	return resp, err
}

func (s *Service) discover(ctx context.Context, userID string, pageSize int, cursor string, now time.Time) (*models.DiscoverResponse, error) {
	size, err := feed.ResolvePageSize(pageSize, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		return nil, err
	}
	var after *feed.Cursor
	if cursor != "" {
		if after, err = feed.DecodeCursor(cursor); err != nil {
			return nil, err
		}
	}

	profile, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	query := profile.QueryEmbedding()
	if after != nil && after.Generation != profile.Generation {
		s.logger.Debug("profile evolved since cursor was issued",
			zap.String("user_id", userID),
			zap.Int64("cursor_generation", after.Generation),
			zap.Int64("generation", profile.Generation))
	}

	exclude, err := s.store.ListInteractedItemIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	k := s.poolSize(size, len(exclude))
	candidates, err := s.index.FetchCandidates(ctx, query, exclude, k)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidInput) && !errors.Is(err, models.ErrUnavailable) {
			err = fmt.Errorf("fetch candidates: %w: %w", models.ErrUnavailable, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadEligible(ctx, candidates, exclude, len(query))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		s.logger.Warn("no candidates for user", zap.String("user_id", userID), zap.Int("excluded", len(exclude)))
	}

	scored, err := s.score(ctx, profile, items, now)
	if err != nil {
		return nil, err
	}
	page := feed.Paginate(scored, size, after, profile.Generation)

	resp := &models.DiscoverResponse{
		Items:      make([]*models.RankedItem, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Candidates: len(scored),
	}
	for _, sc := range page.Items {
		breakdown := sc.Breakdown
		resp.Items = append(resp.Items, &models.RankedItem{
			ItemID:    sc.ItemID,
			Score:     sc.Score,
			Breakdown: &breakdown,
			Item:      sc.Item,
		})
	}
	s.logger.Debug("discover",
		zap.String("user_id", userID),
		zap.Int("k", k),
		zap.Int("candidates", len(candidates)),
		zap.Int("scored", len(scored)),
		zap.Int("returned", len(resp.Items)),
		zap.Bool("has_more", resp.HasMore))
	return resp, nil
}

// poolSize is the number of candidates to request: enough to fill one page and tell whether
// another exists.
func (s *Service) poolSize(pageSize, excluded int) int {
	k := s.cfg.CandidatePool
	if k < pageSize+1 {
		k = pageSize + 1
	}
	if s.cfg.ScaleWithExclusions {
		k += excluded
	}
	return k
}

// loadEligible loads candidate items in candidate order and drops any that must not be scored.
func (s *Service) loadEligible(ctx context.Context, candidates []vector.Candidate, exclude map[string]struct{}, dims int) ([]*models.Item, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ItemID
	}
	byID, err := s.store.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]*models.Item, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		switch {
		case !ok:
			s.logger.Warn("candidate missing from storage", zap.String("item_id", id))
		case !item.Active:
			s.logger.Debug("dropping inactive candidate", zap.String("item_id", id))
		case len(item.Embedding) != dims:
			s.logger.Warn("dropping candidate with wrong embedding dimension",
				zap.String("item_id", id),
				zap.Int("dimension", len(item.Embedding)),
				zap.Int("expected", dims))
		default:
			if _, seen := exclude[id]; seen {
				continue
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// score scores items in parallel with one weight snapshot.
func (s *Service) score(ctx context.Context, profile *models.UserProfile, items []*models.Item, now time.Time) ([]feed.Scored, error) {
	scored := make([]feed.Scored, len(items))
	if len(items) == 0 {
		return scored, nil
	}
	ws := s.scorer.Weights()
	workers := s.cfg.ScoreWorkers
	if workers > len(items) {
		workers = len(items)
	}
	chunk := (len(items) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(items); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(items))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				item := items[i]
				b := s.scorer.ScoreWith(ws, profile, item, now)
				if b.FutureDated {
					s.logger.Debug("item created in the future", zap.String("item_id", item.ID))
				}
				scored[i] = feed.Scored{ItemID: item.ID, Score: b.Final, Breakdown: b.Components, Item: item}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}
