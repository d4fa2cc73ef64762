package vector

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// openTestPG returns a pgvector index against MATCHFEED_TEST_POSTGRES_DSN, skipping when unset.
func openTestPG(t *testing.T) *PGVectorIndex {
	t.Helper()
	dsn := os.Getenv("MATCHFEED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MATCHFEED_TEST_POSTGRES_DSN not set")
	}
	table := fmt.Sprintf("test_embeddings_%d", time.Now().UnixNano())
	idx, err := OpenPGVectorIndex(context.Background(), dsn, table, 2)
	if err != nil {
		t.Fatalf("OpenPGVectorIndex: %v", err)
	}
	t.Cleanup(func() {
		_, _ = idx.db.Exec("DROP TABLE IF EXISTS " + table)
		idx.Close()
	})
	return idx
}

func TestNewPGVectorIndex_RejectsBadTableName(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://invalid")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := NewPGVectorIndex(context.Background(), db, "items; DROP TABLE users", 2); err == nil {
		t.Error("expected invalid table name error")
	}
}

func TestPGVectorIndex_FetchCandidates(t *testing.T) {
	idx := openTestPG(t)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{{1, 0}, {1, 1}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := idx.FetchCandidates(ctx, []float32{1, 0}, map[string]struct{}{"a": {}}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ItemID != "b" || got[1].ItemID != "c" {
		t.Errorf("got %v", got)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}
	v, err := idx.Embedding(ctx, "c")
	if err != nil || len(v) != 2 {
		t.Errorf("Embedding: %v %v", v, err)
	}
}

func TestCandidateQuery_OrdersByIndexedExpression(t *testing.T) {
	q := candidateQuery("item_embeddings")
	order := q[strings.Index(q, "ORDER BY"):]
	if !strings.Contains(order, "ORDER BY embedding <=> $1") {
		t.Errorf("query does not order by the distance operator:\n%s", q)
	}
	if strings.Contains(order, "item_id") {
		t.Errorf("secondary sort key defeats the HNSW index:\n%s", q)
	}
}

func TestPGVectorIndex_FetchCandidatesTies(t *testing.T) {
	idx := openTestPG(t)
	ctx := context.Background()
	ids := []string{"d", "b", "c", "a"}
	vecs := [][]float32{{1, 0}, {1, 0}, {0, 1}, {1, 0}}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	got, err := idx.FetchCandidates(ctx, []float32{1, 0}, nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "d", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i, id := range want {
		if got[i].ItemID != id {
			t.Errorf("position %d: %s, want %s (%v)", i, got[i].ItemID, id, got)
		}
	}
}
