package keyword

import (
	"context"
	"strings"
)

const (
	maxSuggestDistance = 2
	minSuggestLength   = 3
)

// Suggest replaces every query term missing from the index with the closest indexed term,
// preferring smaller edit distance and then higher document frequency.
func (b *BleveIndex) Suggest(ctx context.Context, query string) (string, bool, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return query, false, nil
	}
	freqs, err := b.termFrequencies()
	if err != nil {
		return query, false, err
	}
	changed := false
	for i, term := range terms {
		if _, ok := freqs[term]; ok || len([]rune(term)) < minSuggestLength {
			continue
		}
		if best := closestTerm(term, freqs); best != "" {
			terms[i] = best
			changed = true
		}
	}
	if !changed {
		return query, false, nil
	}
	return strings.Join(terms, " "), true, nil
}

func closestTerm(term string, freqs map[string]int) string {
	best, bestDist, bestFreq := "", maxSuggestDistance+1, 0
	n := len([]rune(term))
	for candidate, freq := range freqs {
		diff := len([]rune(candidate)) - n
		if diff > maxSuggestDistance || diff < -maxSuggestDistance {
			continue
		}
		d := levenshtein(term, candidate)
		if d > maxSuggestDistance {
			continue
		}
		if d < bestDist || (d == bestDist && (freq > bestFreq || (freq == bestFreq && candidate < best))) {
			best, bestDist, bestFreq = candidate, d, freq
		}
	}
	return best
}

// levenshtein returns the rune-level edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
