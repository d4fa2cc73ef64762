package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

func TestEmbeddingSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{2, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0},
		{"zero vector", []float32{1, 0}, []float32{0, 0}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EmbeddingSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSkillOverlap(t *testing.T) {
	tests := []struct {
		name   string
		skills []string
		tags   []string
		want   float64
	}{
		{"case insensitive", []string{"python", "sql"}, []string{"Python", "SQL", "Docker"}, 2.0 / 3.0},
		{"duplicate tags counted once", []string{"Go"}, []string{"Go", "go", "Rust"}, 0.5},
		{"no tags", []string{"Go"}, nil, 0},
		{"no skills", nil, []string{"Go"}, 0},
		{"full", []string{"Go", "SQL", "Extra"}, []string{"go", "sql"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SkillOverlap(tt.skills, tt.tags); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMatchingSkills(t *testing.T) {
	got := MatchingSkills([]string{"sql", "python"}, []string{"Python", "Docker", "SQL"})
	if len(got) != 2 || got[0] != "Python" || got[1] != "SQL" {
		t.Errorf("got %v", got)
	}
}

func TestSeniorityMatch(t *testing.T) {
	tests := []struct {
		user, item models.Seniority
		want       float64
	}{
		{models.SenioritySenior, models.SenioritySenior, 1},
		{models.SenioritySenior, models.SeniorityLead, 0.5},
		{models.SeniorityMid, models.SenioritySenior, 0.5},
		{models.SeniorityJunior, models.SeniorityLead, 0},
		{models.SeniorityUnknown, models.SeniorityUnknown, 0},
		{models.SeniorityEntry, models.SeniorityUnknown, 0},
	}
	for _, tt := range tests {
		if got := SeniorityMatch(tt.user, tt.item); got != tt.want {
			t.Errorf("SeniorityMatch(%s, %s) = %f, want %f", tt.user, tt.item, got, tt.want)
		}
	}
}

func TestRecencyDecay(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	v, future := RecencyDecay(now.Add(-72*time.Hour), now, 72*time.Hour)
	if math.Abs(v-math.Exp(-1)) > 1e-9 || future {
		t.Errorf("72h old: %f %v", v, future)
	}
	v, future = RecencyDecay(now, now, 72*time.Hour)
	if v != 1 || future {
		t.Errorf("fresh: %f %v", v, future)
	}
	v, future = RecencyDecay(now.Add(time.Hour), now, 72*time.Hour)
	if v != 1 || !future {
		t.Errorf("future: %f %v", v, future)
	}
	v, _ = RecencyDecay(now.Add(-24*365*time.Hour), now, 72*time.Hour)
	if v < 0 || v > 1e-40 {
		t.Errorf("a year old should decay to ~0, got %g", v)
	}
}

func TestLocationMatch(t *testing.T) {
	if LocationMatch("  remote ", []string{"Remote"}) != 1 {
		t.Error("trimmed case-insensitive match expected")
	}
	if LocationMatch("Berlin", []string{"Berlin, Germany"}) != 0 {
		t.Error("membership is exact, not substring")
	}
	if LocationMatch("Berlin", nil) != 0 {
		t.Error("empty preferences never match")
	}
	if LocationMatch("", []string{""}) != 0 {
		t.Error("empty location never matches")
	}
}
