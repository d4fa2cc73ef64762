package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: ./data/matchfeed.db
  bleve_index_path: ./data/bleve
embedding:
  mock: true
  dimensions: 8
vector:
  index_type: memory
  index_path: ./data/vectors.bin
`
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_explicitPath(t *testing.T) {
	path := writeTestConfig(t)
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if want := filepath.Join(filepath.Dir(path), "data", "matchfeed.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestDiscoverURL(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pageSize int
		cursor   string
		want     string
	}{
		{"defaults", "u1", 0, "", "http://h/api/v1/users/u1/discover"},
		{"page size", "u1", 10, "", "http://h/api/v1/users/u1/discover?page_size=10"},
		{"cursor", "u1", 5, "ab-_", "http://h/api/v1/users/u1/discover?cursor=ab-_&page_size=5"},
		{"escaped user", "a b", 0, "", "http://h/api/v1/users/a%20b/discover"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := discoverURL("http://h", tt.user, tt.pageSize, tt.cursor); got != tt.want {
				t.Errorf("discoverURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDoJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "already swiped"})
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["user_id"]})
	}))
	defer ts.Close()

	var out map[string]string
	if err := doJSON(http.MethodPost, ts.URL+"/ok", map[string]string{"user_id": "u1"}, http.StatusCreated, &out); err != nil {
		t.Fatal(err)
	}
	if out["echo"] != "u1" {
		t.Errorf("out = %v", out)
	}

	err := doJSON(http.MethodPost, ts.URL+"/fail", nil, http.StatusCreated, nil)
	if err == nil || !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "already swiped") {
		t.Errorf("err = %v", err)
	}
}

func TestComponents_importRebuildStatus(t *testing.T) {
	cfg, _, err := loadConfig(writeTestConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	logger := zap.NewNop()

	c, err := initializeComponents(ctx, cfg, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	jobs := filepath.Join(t.TempDir(), "jobs.json")
	data := `[{"id":"1","title":"Go engineer","company":"Acme","tags":["Go","Kafka"]},
	          {"id":"2","title":"Data engineer","company":"Beta","tags":["SQL"]}]`
	if err := os.WriteFile(jobs, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := c.Catalog.ImportFile(ctx, jobs)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 {
		t.Fatalf("import result: %+v", res)
	}
	c.saveVectors(logger)
	c.Close()

	// Reopen: the saved memory index is loaded and already in sync.
	c, err = initializeComponents(ctx, cfg, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if got := c.VectorIndex.Size(); got != 2 {
		t.Fatalf("vector index size after reopen = %d", got)
	}
	if err := c.rebuildIfStale(ctx, logger); err != nil {
		t.Fatal(err)
	}

	// Losing the vector file is repaired by a rebuild.
	if err := c.VectorIndex.Remove(ctx, []string{firstItemID(t, c)}); err != nil {
		t.Fatal(err)
	}
	if err := c.rebuildIfStale(ctx, logger); err != nil {
		t.Fatal(err)
	}
	if got := c.VectorIndex.Size(); got != 2 {
		t.Errorf("vector index size after rebuild = %d", got)
	}

	report, err := c.status(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if report.Items != 2 || report.ActiveItems != 2 || report.VectorIndexSize != 2 || report.Config.VectorIndexType != "memory" {
		t.Errorf("status: %+v %+v", report, report.Config)
	}
	if report.DiskUsageBytes == nil || *report.DiskUsageBytes == 0 {
		t.Error("disk usage not reported")
	}
}

func firstItemID(t *testing.T, c *Components) string {
	t.Helper()
	items, err := c.Storage.ListItems(context.Background(), true, 0, 1)
	if err != nil || len(items) == 0 {
		t.Fatalf("list items: %v", err)
	}
	return items[0].ID
}
