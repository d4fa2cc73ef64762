package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/keyword"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
)

const testDims = 64

type fixture struct {
	store    *storage.SQLiteStorage
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
	catalog  *Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	vectors, err := vector.NewMemoryIndex(testDims)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { keywords.Close() })
	return &fixture{
		store:    store,
		vectors:  vectors,
		keywords: keywords,
		catalog:  New(store, embedding.NewMockEmbedder(testDims), vectors, WithKeywordIndex(keywords)),
	}
}

func ptr[T any](v T) *T { return &v }

func dataEngineer() *models.ItemInput {
	return &models.ItemInput{
		Title:       ptr("Data Engineer"),
		Company:     ptr("Acme"),
		Description: ptr("Build streaming pipelines with Kafka and Spark."),
		Tags:        ptr([]string{"Python", "SQL", "python "}),
		Seniority:   ptr("senior"),
		Location:    ptr("Berlin"),
	}
}

func TestCatalog_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.catalog.Create(ctx, dataEngineer())
	if err != nil {
		t.Fatal(err)
	}
	if item.ID == "" || !item.Active || len(item.Embedding) != testDims {
		t.Fatalf("item=%+v", item)
	}
	if !slices.Equal(item.Tags, []string{"Python", "SQL"}) || item.Seniority != models.SenioritySenior {
		t.Errorf("tags=%v seniority=%v", item.Tags, item.Seniority)
	}
	stored, err := f.store.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Data Engineer" {
		t.Errorf("stored=%+v", stored)
	}
	cands, err := f.vectors.FetchCandidates(ctx, item.Embedding, nil, 1)
	if err != nil || len(cands) != 1 || cands[0].ItemID != item.ID {
		t.Errorf("candidates=%v err=%v", cands, err)
	}
	res, err := f.catalog.Search(ctx, "kafka", 10, nil)
	if err != nil || len(res.Items) != 1 {
		t.Errorf("search=%+v err=%v", res, err)
	}
}

func TestCatalog_CreateInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name string
		in   *models.ItemInput
	}{
		{"missing title", &models.ItemInput{Company: ptr("Acme")}},
		{"blank title", &models.ItemInput{Title: ptr("   ")}},
		{"bad seniority", &models.ItemInput{Title: ptr("Engineer"), Seniority: ptr("wizard")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.catalog.Create(ctx, tt.in); !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if f.vectors.Size() != 0 {
		t.Errorf("invalid items reached the index")
	}
}

func TestCatalog_CreateDuplicateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := dataEngineer()
	in.ID = "job-1"
	if _, err := f.catalog.Create(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := f.catalog.Create(ctx, in); !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCatalog_UpdateReembedsOnContentChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.catalog.Create(ctx, dataEngineer())
	if err != nil {
		t.Fatal(err)
	}
	original := slices.Clone(item.Embedding)

	moved, err := f.catalog.Update(ctx, item.ID, &models.ItemInput{Location: ptr("Remote")})
	if err != nil {
		t.Fatal(err)
	}
	if moved.Location != "Remote" || !slices.Equal(moved.Embedding, original) {
		t.Errorf("location-only update should keep the embedding")
	}

	rewritten, err := f.catalog.Update(ctx, item.ID, &models.ItemInput{Description: ptr("Frontend work in React and CSS.")})
	if err != nil {
		t.Fatal(err)
	}
	if slices.Equal(rewritten.Embedding, original) {
		t.Fatal("description change should re-embed")
	}
	cands, err := f.vectors.FetchCandidates(ctx, rewritten.Embedding, nil, 1)
	if err != nil || cands[0].ItemID != item.ID || cands[0].Distance > 1e-6 {
		t.Errorf("index not updated: %v %v", cands, err)
	}
	if f.vectors.Size() != 1 {
		t.Errorf("update duplicated the vector: size=%d", f.vectors.Size())
	}
}

func TestCatalog_UpdateMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.catalog.Update(context.Background(), "ghost", &models.ItemInput{Title: ptr("x")}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_Deactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.catalog.Create(ctx, dataEngineer())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.Deactivate(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if f.vectors.Size() != 0 {
		t.Errorf("vector still indexed")
	}
	stored, _ := f.store.GetItem(ctx, item.ID)
	if stored.Active {
		t.Error("item still active")
	}
	res, err := f.catalog.Search(ctx, "kafka", 10, nil)
	if err != nil || len(res.Items) != 0 {
		t.Errorf("search=%+v err=%v", res, err)
	}
	if err := f.catalog.Deactivate(ctx, "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalog_Rebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"Data Engineer", "Backend Engineer", "Designer"} {
		in := dataEngineer()
		in.Title = ptr(title)
		if _, err := f.catalog.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	gone, _ := f.catalog.Create(ctx, &models.ItemInput{Title: ptr("Retired role")})
	if err := f.catalog.Deactivate(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}

	fresh, _ := vector.NewMemoryIndex(testDims)
	rebuilt := New(f.store, embedding.NewMockEmbedder(testDims), fresh)
	n, err := rebuilt.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || fresh.Size() != 3 {
		t.Errorf("rebuilt %d items, index size %d", n, fresh.Size())
	}
}

func TestCatalog_SearchSuggestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.catalog.Create(ctx, dataEngineer()); err != nil {
		t.Fatal(err)
	}
	res, err := f.catalog.Search(ctx, "kafak", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 || res.Suggestion != "kafka" {
		t.Errorf("res=%+v", res)
	}
}

func TestCatalog_SearchWithoutKeywordIndex(t *testing.T) {
	f := newFixture(t)
	c := New(f.store, embedding.NewMockEmbedder(testDims), f.vectors)
	if _, err := c.Search(context.Background(), "x", 10, nil); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
