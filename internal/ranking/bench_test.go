package ranking

import (
	"testing"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

func BenchmarkScore(b *testing.B) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.UserProfile{
		Skills:             []string{"Go", "Kafka", "Postgres", "Kubernetes"},
		PreferredLocations: []string{"Berlin", "Remote"},
		Seniority:          models.SenioritySenior,
		BaseEmbedding:      make([]float32, 384),
	}
	item := &models.Item{
		Tags:      []string{"go", "grpc", "postgres"},
		Seniority: models.SeniorityLead,
		Location:  "Berlin",
		Embedding: make([]float32, 384),
		CreatedAt: now.Add(-30 * time.Hour),
	}
	for i := range item.Embedding {
		item.Embedding[i] = float32(i%7) / 7
		profile.BaseEmbedding[i] = float32(i%5) / 5
	}
	ws := DefaultWeightSet()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Score(ws, DefaultRecencyHorizon, profile, item, now)
	}
}
