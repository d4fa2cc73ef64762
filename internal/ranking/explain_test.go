package ranking

import (
	"strings"
	"testing"
	"time"
)

func TestExplain(t *testing.T) {
	profile, item := scenario()
	ws := DefaultWeightSet()
	b := Score(ws, DefaultRecencyHorizon, profile, item, scoringNow)
	ex := Explain(ws, b, profile, item, scoringNow)

	if ex.Score != b.Final || ex.ItemID != "job1" {
		t.Errorf("header: %+v", ex)
	}
	if len(ex.Factors) != 5 {
		t.Fatalf("factors=%d", len(ex.Factors))
	}
	var total float64
	for _, f := range ex.Factors {
		total += f.Contribution
		if f.Explanation == "" {
			t.Errorf("factor %s has no explanation", f.Name)
		}
	}
	if int(total*100+0.5) != b.Final {
		t.Errorf("contributions sum to %f, score %d", total, b.Final)
	}
	skills := ex.Factors[1]
	if !strings.Contains(skills.Explanation, "2 of the 3") || !strings.Contains(skills.Details, "Python, SQL") {
		t.Errorf("skills factor: %+v", skills)
	}
	if !strings.Contains(ex.Factors[3].Details, "yesterday") {
		t.Errorf("recency details: %s", ex.Factors[3].Details)
	}
	if !strings.Contains(ex.Summary, "exceptional") || !strings.Contains(ex.Summary, "Data Engineer at Acme") {
		t.Errorf("summary: %s", ex.Summary)
	}
}

func TestExplain_MissingData(t *testing.T) {
	profile, item := scenario()
	profile.Skills = nil
	profile.PreferredLocations = nil
	item.Location = ""
	ws := DefaultWeightSet()
	ex := Explain(ws, Score(ws, DefaultRecencyHorizon, profile, item, scoringNow), profile, item, scoringNow)
	if !strings.Contains(ex.Factors[1].Explanation, "could not be compared") {
		t.Errorf("skills: %s", ex.Factors[1].Explanation)
	}
	if !strings.Contains(ex.Factors[4].Explanation, "does not state a location") {
		t.Errorf("location: %s", ex.Factors[4].Explanation)
	}
}

func TestExplain_RecencyWording(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"few hours in the future", -3 * time.Hour, "Posted with a future date"},
		{"days in the future", -50 * time.Hour, "Posted with a future date"},
		{"just now", 0, "Posted today"},
		{"this morning", 5 * time.Hour, "Posted today"},
		{"yesterday", 30 * time.Hour, "Posted yesterday"},
		{"last week", 7 * 24 * time.Hour, "Posted 7 days ago"},
	}
	ws := DefaultWeightSet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, item := scenario()
			item.CreatedAt = scoringNow.Add(-tt.age)
			b := Score(ws, DefaultRecencyHorizon, profile, item, scoringNow)
			recency := Explain(ws, b, profile, item, scoringNow).Factors[3]
			if recency.Details != tt.want {
				t.Errorf("details=%q, want %q", recency.Details, tt.want)
			}
			if tt.age < 0 && !b.FutureDated {
				t.Error("expected FutureDated")
			}
		})
	}
}
