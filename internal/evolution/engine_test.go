package evolution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "evolution.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store storage.Storage, id string, base []float32) {
	t.Helper()
	err := store.CreateUser(context.Background(), &models.UserProfile{
		ID:            id,
		Skills:        []string{"Go"},
		Seniority:     models.SeniorityMid,
		BaseEmbedding: base,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func createItem(t *testing.T, store storage.Storage, id string, emb []float32) {
	t.Helper()
	err := store.CreateItem(context.Background(), &models.Item{
		ID:        id,
		Title:     "Role " + id,
		Company:   "Acme",
		Active:    true,
		Embedding: emb,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func accept(t *testing.T, store storage.Storage, userID, itemID string) int {
	t.Helper()
	n, err := store.RecordInteraction(context.Background(), &models.Interaction{
		UserID:   userID,
		ItemID:   itemID,
		Decision: models.DecisionAccept,
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func defaultConfig() Config {
	return Config{Threshold: 5, EveryN: 1, BaseWeight: 0.3, HistoryWeight: 0.7}
}

func TestConfig_Due(t *testing.T) {
	tests := []struct {
		cfg   Config
		count int
		want  bool
	}{
		{defaultConfig(), 4, false},
		{defaultConfig(), 5, true},
		{defaultConfig(), 6, true},
		{Config{Threshold: 5, EveryN: 3}, 6, false},
		{Config{Threshold: 5, EveryN: 3}, 8, true},
		{Config{Threshold: 0, EveryN: 0}, 0, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.Due(tt.count); got != tt.want {
			t.Errorf("Due(%d) with %+v = %v, want %v", tt.count, tt.cfg, got, tt.want)
		}
	}
}

func TestEngine_ThresholdFourVersusFive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", []float32{1, 0, 0})
	for i := 0; i < 5; i++ {
		createItem(t, store, fmt.Sprintf("job%d", i), []float32{0, 1, 0})
	}
	engine := NewEngine(store, defaultConfig())

	for i := 0; i < 4; i++ {
		n := accept(t, store, "u1", fmt.Sprintf("job%d", i))
		res, err := engine.OnAccept(ctx, "u1", fmt.Sprintf("job%d", i), n)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != OutcomeSkipped {
			t.Fatalf("accept %d: outcome=%s", i+1, res.Outcome)
		}
	}
	u, _ := store.GetUser(ctx, "u1")
	if u.Generation != 0 || u.CurrentEmbedding[0] != 1 {
		t.Fatalf("profile changed before threshold: %+v", u)
	}

	n := accept(t, store, "u1", "job4")
	res, err := engine.OnAccept(ctx, "u1", "job4", n)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeUpdated || res.Accepts != 5 || res.Generation != 1 || res.AcceptedCount != 5 {
		t.Fatalf("result=%+v", res)
	}

	u, _ = store.GetUser(ctx, "u1")
	norm := math.Sqrt(0.3*0.3 + 0.7*0.7)
	want := []float64{0.3 / norm, 0.7 / norm, 0}
	for i, w := range want {
		if math.Abs(float64(u.CurrentEmbedding[i])-w) > 1e-6 {
			t.Errorf("current[%d]=%f, want %f", i, u.CurrentEmbedding[i], w)
		}
	}
	if u.BaseEmbedding[0] != 1 || u.BaseEmbedding[1] != 0 {
		t.Errorf("base embedding modified: %v", u.BaseEmbedding)
	}
}

func TestEngine_RecomputeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", []float32{0.6, 0.8, 0})
	embs := [][]float32{{0.1, 0.2, 0.97}, {0.5, 0.5, 0.7}, {0.9, 0.1, 0.42}}
	for i, e := range embs {
		id := fmt.Sprintf("job%d", i)
		createItem(t, store, id, e)
		accept(t, store, "u1", id)
	}
	engine := NewEngine(store, defaultConfig())

	first, err := engine.Recompute(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	u1, _ := store.GetUser(ctx, "u1")
	second, err := engine.Recompute(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	u2, _ := store.GetUser(ctx, "u1")

	if first.Outcome != OutcomeUpdated || second.Outcome != OutcomeUpdated {
		t.Fatalf("outcomes %s, %s", first.Outcome, second.Outcome)
	}
	if second.Generation != first.Generation+1 {
		t.Errorf("generations %d then %d", first.Generation, second.Generation)
	}
	for i := range u1.CurrentEmbedding {
		if u1.CurrentEmbedding[i] != u2.CurrentEmbedding[i] {
			t.Fatalf("component %d differs: %v vs %v", i, u1.CurrentEmbedding[i], u2.CurrentEmbedding[i])
		}
	}
}

func TestEngine_DegenerateBlendKeepsVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", []float32{1, 0})
	createItem(t, store, "opposite", []float32{-1, 0})
	n := accept(t, store, "u1", "opposite")

	engine := NewEngine(store, Config{Threshold: 1, EveryN: 1, BaseWeight: 0.5, HistoryWeight: 0.5})
	res, err := engine.OnAccept(ctx, "u1", "opposite", n)
	if err != nil {
		t.Fatalf("degenerate blend must not error: %v", err)
	}
	if res.Outcome != OutcomeDegenerate {
		t.Fatalf("outcome=%s", res.Outcome)
	}
	u, _ := store.GetUser(ctx, "u1")
	if u.Generation != 0 || u.CurrentEmbedding[0] != 1 || u.CurrentEmbedding[1] != 0 {
		t.Errorf("profile changed: %+v", u)
	}
}

func TestEngine_SkipsWrongDimensionHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", []float32{1, 0})
	createItem(t, store, "ok", []float32{0, 1})
	createItem(t, store, "wide", []float32{0, 0, 1})
	accept(t, store, "u1", "ok")
	accept(t, store, "u1", "wide")

	res, err := NewEngine(store, defaultConfig()).Recompute(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeUpdated || res.Accepts != 1 {
		t.Errorf("result=%+v", res)
	}
}

func TestEngine_NoAcceptsSkips(t *testing.T) {
	store := newTestStore(t)
	createUser(t, store, "u1", []float32{1, 0})
	res, err := NewEngine(store, defaultConfig()).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeSkipped {
		t.Errorf("outcome=%s", res.Outcome)
	}
}

func TestEngine_UnknownUser(t *testing.T) {
	store := newTestStore(t)
	_, err := NewEngine(store, defaultConfig()).OnAccept(context.Background(), "ghost", "job", 1)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEngine_OnAcceptUsesCountAtAcceptTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", []float32{1, 0, 0})
	counts := make([]int, 5)
	for i := range counts {
		createItem(t, store, fmt.Sprintf("job%d", i), []float32{0, 1, 0})
		counts[i] = accept(t, store, "u1", fmt.Sprintf("job%d", i))
	}
	engine := NewEngine(store, defaultConfig())

	// All five accepts are stored before any event is handled.
	for i, n := range counts {
		res, err := engine.OnAccept(ctx, "u1", fmt.Sprintf("job%d", i), n)
		if err != nil {
			t.Fatal(err)
		}
		want := OutcomeSkipped
		if n == 5 {
			want = OutcomeUpdated
		}
		if res.Outcome != want || res.AcceptedCount != n {
			t.Errorf("accept %d: result=%+v, want outcome %s", n, res, want)
		}
	}
	u, _ := store.GetUser(ctx, "u1")
	if u.Generation != 1 {
		t.Errorf("generation=%d, want 1", u.Generation)
	}

	// Without a count the stored one decides.
	res, err := engine.OnAccept(ctx, "u1", "job4", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeUpdated || res.AcceptedCount != 5 {
		t.Errorf("fallback result=%+v", res)
	}
}
