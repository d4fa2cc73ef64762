package models

// ScoreBreakdown holds the per-component values (each in [0,1]) behind a final score.
type ScoreBreakdown struct {
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
	SkillOverlap        float64 `json:"skill_overlap"`
	SeniorityMatch      float64 `json:"seniority_match"`
	RecencyDecay        float64 `json:"recency_decay"`
	LocationMatch       float64 `json:"location_match"`
}

// RankedItem is one entry of a discovery page.
type RankedItem struct {
	ItemID    string          `json:"item_id"`
	Score     int             `json:"score"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
	Item      *Item           `json:"item,omitempty"`
}

// DiscoverResponse is a page of the personalized feed.
// NextCursor is empty when HasMore is false.
type DiscoverResponse struct {
	Items      []*RankedItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
	Candidates int           `json:"candidates"`
	QueryTime  int64         `json:"query_time_ms"`
}
