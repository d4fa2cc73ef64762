package ranking

import (
	"math"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// DefaultRecencyHorizon is the recency decay time constant.
const DefaultRecencyHorizon = 72 * time.Hour

// Breakdown is the result of scoring one item for one profile.
type Breakdown struct {
	Components models.ScoreBreakdown
	// Weighted is Σ w_i c_i before scaling and rounding.
	Weighted    float64
	Final       int
	FutureDated bool
	WeightSet   string
}

// Score computes the hybrid score. It reads nothing but its arguments.
func Score(ws WeightSet, horizon time.Duration, profile *models.UserProfile, item *models.Item, now time.Time) Breakdown {
	recency, future := RecencyDecay(item.CreatedAt, now, horizon)
	c := models.ScoreBreakdown{
		EmbeddingSimilarity: EmbeddingSimilarity(profile.QueryEmbedding(), item.Embedding),
		SkillOverlap:        SkillOverlap(profile.Skills, item.Tags),
		SeniorityMatch:      SeniorityMatch(profile.Seniority, item.Seniority),
		RecencyDecay:        recency,
		LocationMatch:       LocationMatch(item.Location, profile.PreferredLocations),
	}
	weighted := ws.weighted(c)
	return Breakdown{
		Components:  c,
		Weighted:    weighted,
		Final:       finalScore(weighted),
		FutureDated: future,
		WeightSet:   ws.Name,
	}
}

func finalScore(weighted float64) int {
	if math.IsNaN(weighted) {
		return 0
	}
	v := math.Round(100 * weighted)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// Scorer scores with the active weights of a WeightStore.
type Scorer struct {
	weights *WeightStore
	horizon time.Duration
}

// NewScorer returns a scorer. A non-positive horizon uses DefaultRecencyHorizon.
func NewScorer(weights *WeightStore, horizon time.Duration) *Scorer {
	if horizon <= 0 {
		horizon = DefaultRecencyHorizon
	}
	return &Scorer{weights: weights, horizon: horizon}
}

// Weights returns the weight set the next Score call would use. Callers scoring a batch should
// take one snapshot and call ScoreWith so a concurrent reload cannot split the batch.
func (s *Scorer) Weights() WeightSet {
	return s.weights.Active()
}

// Score scores one item with the currently active weights.
func (s *Scorer) Score(profile *models.UserProfile, item *models.Item, now time.Time) Breakdown {
	return Score(s.weights.Active(), s.horizon, profile, item, now)
}

// ScoreWith scores with a fixed weight set.
func (s *Scorer) ScoreWith(ws WeightSet, profile *models.UserProfile, item *models.Item, now time.Time) Breakdown {
	return Score(ws, s.horizon, profile, item, now)
}

// Horizon returns the recency decay horizon.
func (s *Scorer) Horizon() time.Duration {
	return s.horizon
}
