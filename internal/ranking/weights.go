// Package ranking scores items against a user profile with a weighted blend of embedding
// similarity and rule-based features, and explains the resulting score.
package ranking

import (
	"fmt"
	"math"

	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/models"
)

// weightSumTolerance is how far the weights of a set may drift from 1.0.
const weightSumTolerance = 1e-6

// WeightSet is a named, validated set of component weights.
type WeightSet struct {
	Name                string  `json:"name" yaml:"name"`
	EmbeddingSimilarity float64 `json:"embedding_similarity" yaml:"embedding_similarity"`
	SkillOverlap        float64 `json:"skill_overlap" yaml:"skill_overlap"`
	SeniorityMatch      float64 `json:"seniority_match" yaml:"seniority_match"`
	RecencyDecay        float64 `json:"recency_decay" yaml:"recency_decay"`
	LocationMatch       float64 `json:"location_match" yaml:"location_match"`
}

// DefaultWeightSet returns the built-in weights: 0.55 similarity, 0.20 skills, 0.10 seniority,
// 0.10 recency, 0.05 location.
func DefaultWeightSet() WeightSet {
	return FromConfig(config.DefaultWeightSetName, config.DefaultWeights)
}

// FromConfig converts a configured weight set.
func FromConfig(name string, w config.WeightsConfig) WeightSet {
	return WeightSet{
		Name:                name,
		EmbeddingSimilarity: w.EmbeddingSimilarity,
		SkillOverlap:        w.SkillOverlap,
		SeniorityMatch:      w.SeniorityMatch,
		RecencyDecay:        w.RecencyDecay,
		LocationMatch:       w.LocationMatch,
	}
}

// Sum returns the total weight.
func (w WeightSet) Sum() float64 {
	return w.EmbeddingSimilarity + w.SkillOverlap + w.SeniorityMatch + w.RecencyDecay + w.LocationMatch
}

// Validate rejects negative or non-finite weights and sets that do not sum to 1.
func (w WeightSet) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"embedding_similarity", w.EmbeddingSimilarity},
		{"skill_overlap", w.SkillOverlap},
		{"seniority_match", w.SeniorityMatch},
		{"recency_decay", w.RecencyDecay},
		{"location_match", w.LocationMatch},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: weight set %q: %s must be a non-negative number, got %v",
				models.ErrInvalidInput, w.Name, f.name, f.v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weight set %q sums to %v, expected 1", models.ErrInvalidInput, w.Name, sum)
	}
	return nil
}

// weighted returns Σ w_i * c_i.
func (w WeightSet) weighted(c models.ScoreBreakdown) float64 {
	return w.EmbeddingSimilarity*c.EmbeddingSimilarity +
		w.SkillOverlap*c.SkillOverlap +
		w.SeniorityMatch*c.SeniorityMatch +
		w.RecencyDecay*c.RecencyDecay +
		w.LocationMatch*c.LocationMatch
}
