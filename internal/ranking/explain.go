package ranking

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// Factor explains one scoring component.
type Factor struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Explanation  string  `json:"explanation"`
	Details      string  `json:"details,omitempty"`
}

// Explanation is a human-readable account of a score.
type Explanation struct {
	ItemID      string   `json:"item_id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Score       int      `json:"score"`
	WeightSet   string   `json:"weight_set"`
	Summary     string   `json:"summary"`
	FutureDated bool     `json:"future_dated,omitempty"`
	Factors     []Factor `json:"factors"`
}

// Explain describes b, which must have been produced by scoring item for profile with ws at now.
func Explain(ws WeightSet, b Breakdown, profile *models.UserProfile, item *models.Item, now time.Time) *Explanation {
	c := b.Components
	factors := []Factor{
		explainSimilarity(c.EmbeddingSimilarity, ws.EmbeddingSimilarity),
		explainSkills(profile.Skills, item.Tags, c.SkillOverlap, ws.SkillOverlap),
		explainSeniority(profile.Seniority, item.Seniority, c.SeniorityMatch, ws.SeniorityMatch),
		explainRecency(item.CreatedAt, now, c.RecencyDecay, ws.RecencyDecay),
		explainLocation(profile.PreferredLocations, item.Location, c.LocationMatch, ws.LocationMatch),
	}
	return &Explanation{
		ItemID:      item.ID,
		Title:       item.Title,
		Company:     item.Company,
		Score:       b.Final,
		WeightSet:   ws.Name,
		Summary:     summarize(b, item),
		FutureDated: b.FutureDated,
		Factors:     factors,
	}
}

func factor(name string, value, weight float64, explanation, details string) Factor {
	return Factor{
		Name:         name,
		Value:        value,
		Weight:       weight,
		Contribution: value * weight,
		Explanation:  explanation,
		Details:      details,
	}
}

func explainSimilarity(v, w float64) Factor {
	pct := int(v * 100)
	var text string
	switch {
	case v >= 0.9:
		text = "Your profile is very closely aligned with this role."
	case v >= 0.75:
		text = "Your background overlaps strongly with what this role describes."
	case v >= 0.6:
		text = "Your background shares several themes with this role."
	case v >= 0.45:
		text = "Parts of your background are relevant to this role."
	default:
		text = "Your background has little in common with this role."
	}
	return factor("embedding_similarity", v, w, text, fmt.Sprintf("Profile similarity: %d%%", pct))
}

func explainSkills(skills, tags []string, v, w float64) Factor {
	normalized := models.NormalizeTags(tags)
	if len(skills) == 0 || len(normalized) == 0 {
		return factor("skill_overlap", v, w, "Skills could not be compared because the profile or the posting lists none.", "")
	}
	matched := MatchingSkills(skills, normalized)
	text := fmt.Sprintf("You have %d of the %d skills this posting lists.", len(matched), len(normalized))
	switch {
	case v >= 0.8:
		text += " That is an excellent match."
	case v >= 0.5:
		text += " You cover most of the core requirements."
	case v > 0:
		text += " Expect some gaps to close."
	default:
		text = fmt.Sprintf("None of your skills match the %d this posting lists.", len(normalized))
	}
	details := "Required: " + joinLimited(normalized, 5)
	if len(matched) > 0 {
		details = "Matching: " + joinLimited(matched, 10)
	}
	return factor("skill_overlap", v, w, text, details)
}

func explainSeniority(user, item models.Seniority, v, w float64) Factor {
	if !user.Known() || !item.Known() {
		return factor("seniority_match", v, w, "Seniority could not be compared because a level is missing.", "")
	}
	var text string
	switch v {
	case 1:
		text = fmt.Sprintf("Your level (%s) is exactly what the posting asks for.", user)
	case 0.5:
		text = fmt.Sprintf("Your level (%s) is one step from the posting's (%s).", user, item)
	default:
		text = fmt.Sprintf("Your level (%s) is far from the posting's (%s).", user, item)
	}
	return factor("seniority_match", v, w, text, fmt.Sprintf("You: %s, posting: %s", user, item))
}

func explainRecency(createdAt, now time.Time, v, w float64) Factor {
	days := int(now.Sub(createdAt).Hours() / 24)
	var when string
	switch {
	case now.Before(createdAt):
		when = "with a future date"
	case days == 0:
		when = "today"
	case days == 1:
		when = "yesterday"
	default:
		when = fmt.Sprintf("%d days ago", days)
	}
	var text string
	switch {
	case v >= 0.9:
		text = "This posting is brand new."
	case v >= 0.7:
		text = "This posting is recent."
	case v >= 0.5:
		text = "This posting has been up for a few days."
	default:
		text = "This posting is older but may still be open."
	}
	return factor("recency_decay", v, w, text, "Posted "+when)
}

func explainLocation(preferred []string, location string, v, w float64) Factor {
	switch {
	case strings.TrimSpace(location) == "":
		return factor("location_match", v, w, "The posting does not state a location.", "")
	case len(preferred) == 0:
		return factor("location_match", v, w,
			"Add preferred locations to your profile to match on location.", "Location: "+location)
	case v == 1:
		return factor("location_match", v, w, "The location is one of your preferences.", "Match: "+location)
	default:
		return factor("location_match", v, w, "The location is not among your preferences.",
			fmt.Sprintf("Posting: %s, you prefer: %s", location, joinLimited(preferred, 3)))
	}
}

func summarize(b Breakdown, item *models.Item) string {
	var quality string
	switch {
	case b.Final >= 85:
		quality = "an exceptional"
	case b.Final >= 75:
		quality = "an excellent"
	case b.Final >= 65:
		quality = "a good"
	case b.Final >= 50:
		quality = "a moderate"
	default:
		quality = "a limited"
	}
	var strengths []string
	if b.Components.EmbeddingSimilarity >= 0.8 {
		strengths = append(strengths, "strong profile alignment")
	}
	if b.Components.SkillOverlap >= 0.7 {
		strengths = append(strengths, "a strong skill match")
	}
	if b.Components.SeniorityMatch >= 0.5 {
		strengths = append(strengths, "a fitting seniority level")
	}
	s := fmt.Sprintf("This is %s match (%d%%) for %s at %s.", quality, b.Final, item.Title, item.Company)
	switch len(strengths) {
	case 0:
	case 1:
		s += " Main strength: " + strengths[0] + "."
	default:
		s += " Strengths: " + strings.Join(strengths[:len(strengths)-1], ", ") + " and " + strengths[len(strengths)-1] + "."
	}
	return s
}

func joinLimited(values []string, limit int) string {
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(values[:limit], ", "), len(values)-limit)
}
