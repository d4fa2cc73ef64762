package keyword

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/matchfeed/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedItems(t *testing.T, idx *BleveIndex) {
	t.Helper()
	items := []*models.Item{
		{ID: "job1", Title: "Data Engineer", Company: "Acme", Description: "Build pipelines with Spark.", Tags: []string{"Python", "SQL"}, Location: "Berlin", Active: true},
		{ID: "job2", Title: "Frontend Developer", Company: "Globex", Description: "React and TypeScript, some Python scripting.", Tags: []string{"React"}, Location: "Remote", Active: true},
		{ID: "job3", Title: "Python Developer", Company: "Initech", Description: "Django services.", Tags: []string{"Django"}, Location: "Paris", Active: true},
	}
	for _, it := range items {
		if err := idx.IndexItem(context.Background(), it); err != nil {
			t.Fatalf("IndexItem: %v", err)
		}
	}
}

func TestBleveIndex_SearchFields(t *testing.T) {
	idx := newTestIndex(t)
	seedItems(t, idx)
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"spark", "job1"},
		{"globex", "job2"},
		{"django", "job3"},
		{"sql", "job1"},
		{"berlin", "job1"},
	}
	for _, tt := range tests {
		results, err := idx.Search(ctx, tt.query, 10, nil)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.query, err)
		}
		if len(results) == 0 || results[0].ID != tt.want {
			t.Errorf("Search(%q) = %v, want first %s", tt.query, results, tt.want)
		}
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	seedItems(t, idx)
	results, err := idx.Search(context.Background(), "python", 10, &SearchOptions{TitleBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(results))
	}
	if results[0].ID != "job3" {
		t.Errorf("title match should rank first, got %s", results[0].ID)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	seedItems(t, idx)
	ctx := context.Background()
	exact, err := idx.Search(ctx, "djnago", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Errorf("expected no exact hits, got %v", exact)
	}
	fuzzy, err := idx.Search(ctx, "djang", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 || fuzzy[0].ID != "job3" {
		t.Errorf("fuzzy hits=%v", fuzzy)
	}
}

func TestBleveIndex_DeleteAndInactive(t *testing.T) {
	idx := newTestIndex(t)
	seedItems(t, idx)
	ctx := context.Background()

	if err := idx.Delete(ctx, "job1"); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexItem(ctx, &models.Item{ID: "job3", Title: "Python Developer", Active: false}); err != nil {
		t.Fatal(err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount=%d, want 1", n)
	}
	results, _ := idx.Search(ctx, "spark", 10, nil)
	if len(results) != 0 {
		t.Errorf("deleted item still found: %v", results)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	if _, err := idx.Search(context.Background(), "  ", 10, nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	seedItems(t, idx)
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index directory missing: %v", err)
	}
	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, _ := reopened.DocCount()
	if n != 3 {
		t.Errorf("DocCount after reopen=%d", n)
	}
}

func TestBleveIndex_InMemory(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	seedItems(t, idx)
	results, err := idx.Search(context.Background(), "react", 5, nil)
	if err != nil || len(results) != 1 {
		t.Errorf("results=%v err=%v", results, err)
	}
}
