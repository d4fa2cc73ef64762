package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// EmbeddingSimilarity maps cosine similarity from [-1, 1] onto [0, 1].
func EmbeddingSimilarity(profile, item []float32) float64 {
	return (vector.Cosine(profile, item) + 1) / 2
}

// SkillOverlap returns |skills ∩ tags| / |tags|, comparing case-insensitively over de-duplicated
// tags. No tags means no overlap.
func SkillOverlap(skills, tags []string) float64 {
	tagSet := lowerSet(tags)
	if len(tagSet) == 0 {
		return 0
	}
	skillSet := lowerSet(skills)
	matched := 0
	for t := range tagSet {
		if _, ok := skillSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tagSet))
}

// MatchingSkills returns the item tags (original spelling, tag order) the user has.
func MatchingSkills(skills, tags []string) []string {
	skillSet := lowerSet(skills)
	var out []string
	for _, t := range models.NormalizeTags(tags) {
		if _, ok := skillSet[strings.ToLower(t)]; ok {
			out = append(out, t)
		}
	}
	return out
}

// SeniorityMatch is 1 for equal levels, 0.5 for adjacent levels and 0 otherwise.
// An unknown level on either side scores 0.
func SeniorityMatch(user, item models.Seniority) float64 {
	if !user.Known() || !item.Known() {
		return 0
	}
	switch d := int(user) - int(item); {
	case d == 0:
		return 1
	case d == 1 || d == -1:
		return 0.5
	default:
		return 0
	}
}

// RecencyDecay returns exp(-hours/horizon) for an item created at createdAt, scored at now.
// A creation time after now is clamped to zero elapsed and reported as future-dated.
func RecencyDecay(createdAt, now time.Time, horizon time.Duration) (float64, bool) {
	elapsed := now.Sub(createdAt)
	future := elapsed < 0
	if future {
		elapsed = 0
	}
	if horizon <= 0 {
		return 1, future
	}
	v := math.Exp(-elapsed.Hours() / horizon.Hours())
	return math.Max(0, math.Min(1, v)), future
}

// LocationMatch is 1 when the item location is one of the preferred locations, compared
// case-insensitively after trimming. No preferences never match.
func LocationMatch(location string, preferred []string) float64 {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return 0
	}
	for _, p := range preferred {
		if strings.ToLower(strings.TrimSpace(p)) == loc {
			return 1
		}
	}
	return 0
}

func lowerSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
