// Package evolution moves a user's profile vector toward the items they accept.
package evolution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// Outcome describes what an evolution step did.
type Outcome string

const (
	// OutcomeSkipped means no recomputation was due.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUpdated means a new profile vector was written.
	OutcomeUpdated Outcome = "updated"
	// OutcomeDegenerate means the blend had zero norm; the previous vector was kept.
	OutcomeDegenerate Outcome = "degenerate"
)

// Result reports the effect of OnAccept or Recompute.
type Result struct {
	UserID        string  `json:"user_id"`
	Outcome       Outcome `json:"outcome"`
	AcceptedCount int     `json:"accepted_count"`
	// Accepts is the number of embeddings averaged into the history term.
	Accepts    int   `json:"accepts"`
	Generation int64 `json:"generation"`
}

// Config holds the evolution policy.
type Config struct {
	Threshold     int
	EveryN        int
	BaseWeight    float64
	HistoryWeight float64
}

// ConfigFrom converts the config file section.
func ConfigFrom(cfg config.EvolutionConfig) Config {
	return Config{
		Threshold:     cfg.Threshold,
		EveryN:        cfg.EveryN,
		BaseWeight:    cfg.BaseWeight,
		HistoryWeight: cfg.HistoryWeight,
	}
}

// Due reports whether a recomputation is due at the given accepted count.
func (c Config) Due(acceptedCount int) bool {
	if acceptedCount < c.Threshold {
		return false
	}
	every := c.EveryN
	if every < 1 {
		every = 1
	}
	return (acceptedCount-c.Threshold)%every == 0
}

// Engine recomputes profile vectors. Work on one user is serialized; different users proceed
// in parallel.
type Engine struct {
	store   storage.Storage
	cfg     Config
	locks   *keyedMutex
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine over store.
func NewEngine(store storage.Storage, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnAccept handles an accepted item. acceptedCount is the user's accepted count right after
// this accept was recorded; the threshold and cadence are decided on it, not on the count at
// processing time, so a burst of queued accepts recomputes exactly at the due counts. A
// non-positive acceptedCount falls back to the stored count. A due recompute always averages
// the full accepted history.
func (e *Engine) OnAccept(ctx context.Context, userID, itemID string, acceptedCount int) (Result, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	profile, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if acceptedCount <= 0 {
		acceptedCount = profile.AcceptedCount
	}
	if !e.cfg.Due(acceptedCount) {
		e.logger.Debug("evolution not due",
			zap.String("user_id", userID),
			zap.String("item_id", itemID),
			zap.Int("accepted_count", acceptedCount))
		e.metrics.ObserveEvolution(string(OutcomeSkipped), 0)
		return Result{
			UserID:        userID,
			Outcome:       OutcomeSkipped,
			AcceptedCount: acceptedCount,
			Generation:    profile.Generation,
		}, nil
	}
	res, err := e.recompute(ctx, profile)
	res.AcceptedCount = acceptedCount
	return res, err
}

// Recompute rebuilds the profile vector from the base vector and every accepted item,
// regardless of threshold. Repeating it without new accepts writes the same vector.
func (e *Engine) Recompute(ctx context.Context, userID string) (Result, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	profile, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	return e.recompute(ctx, profile)
}

func (e *Engine) recompute(ctx context.Context, profile *models.UserProfile) (Result, error) {
	start := time.Now()
	res := Result{
		UserID:        profile.ID,
		AcceptedCount: profile.AcceptedCount,
		Generation:    profile.Generation,
	}
	base := profile.BaseEmbedding
	if len(base) == 0 {
		return res, fmt.Errorf("%w: user %s has no base embedding", models.ErrInvalidInput, profile.ID)
	}

	accepted, err := e.store.ListAcceptedItemEmbeddings(ctx, profile.ID)
	if err != nil {
		return res, err
	}
	history := make([][]float32, 0, len(accepted))
	for _, emb := range accepted {
		if len(emb) != len(base) {
			e.logger.Warn("skipping accepted embedding with wrong dimension",
				zap.String("user_id", profile.ID),
				zap.Int("dimension", len(emb)),
				zap.Int("expected", len(base)))
			continue
		}
		history = append(history, emb)
	}
	res.Accepts = len(history)
	if len(history) == 0 {
		res.Outcome = OutcomeSkipped
		e.metrics.ObserveEvolution(string(res.Outcome), 0)
		return res, nil
	}

	mean, err := vector.Mean(history)
	if err != nil {
		return res, err
	}
	blend := make([]float64, len(base))
	for i := range blend {
		blend[i] = e.cfg.BaseWeight*float64(base[i]) + e.cfg.HistoryWeight*mean[i]
	}
	next, ok := vector.Normalized64(blend)
	if !ok {
		e.logger.Warn("profile blend has zero norm, keeping previous vector",
			zap.String("user_id", profile.ID),
			zap.Int("accepts", res.Accepts))
		res.Outcome = OutcomeDegenerate
		e.metrics.ObserveEvolution(string(res.Outcome), time.Since(start).Seconds())
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	gen, err := e.store.WriteProfileEmbedding(ctx, profile.ID, next)
	if err != nil {
		return res, err
	}
	res.Outcome = OutcomeUpdated
	res.Generation = gen
	e.metrics.ObserveEvolution(string(res.Outcome), time.Since(start).Seconds())
	e.logger.Info("profile vector updated",
		zap.String("user_id", profile.ID),
		zap.Int("accepts", res.Accepts),
		zap.Int64("generation", gen),
		zap.Duration("took", time.Since(start)))
	return res, nil
}
