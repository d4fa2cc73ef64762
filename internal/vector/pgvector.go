package vector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PGVectorIndex stores item embeddings in PostgreSQL and searches them with the pgvector
// cosine distance operator. Exclusions are applied in SQL so LIMIT counts eligible rows only.
type PGVectorIndex struct {
	db         *sql.DB
	table      string
	dimensions int
	logger     *zap.Logger
}

// PGOption configures a PGVectorIndex.
type PGOption func(*PGVectorIndex)

// WithPGLogger sets the logger used for schema and query diagnostics.
func WithPGLogger(l *zap.Logger) PGOption {
	return func(p *PGVectorIndex) {
		if l != nil {
			p.logger = l
		}
	}
}

// OpenPGVectorIndex connects to dsn and creates the embeddings table if needed.
func OpenPGVectorIndex(ctx context.Context, dsn, table string, dimensions int, opts ...PGOption) (*PGVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	idx, err := NewPGVectorIndex(ctx, db, table, dimensions, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// NewPGVectorIndex wraps an existing database handle. The handle is closed by Close.
func NewPGVectorIndex(ctx context.Context, db *sql.DB, table string, dimensions int, opts ...PGOption) (*PGVectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	p := &PGVectorIndex{db: db, table: table, dimensions: dimensions, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.initSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PGVectorIndex) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			item_id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL
		)`, p.table, p.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_hnsw ON %s USING hnsw (embedding vector_cosine_ops)`, p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init pgvector schema: %w", err)
		}
	}
	p.logger.Debug("pgvector schema ready", zap.String("table", p.table), zap.Int("dimensions", p.dimensions))
	return nil
}

// Type returns the index type identifier.
func (p *PGVectorIndex) Type() string {
	return string(IndexTypePGVector)
}

// Add upserts vectors in a single transaction.
func (p *PGVectorIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if err := Validate(vectors[i], p.dimensions); err != nil {
			return fmt.Errorf("vector %s: %w", ids[i], err)
		}
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", models.ErrUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (item_id, embedding) VALUES ($1, $2)
		ON CONFLICT (item_id) DO UPDATE SET embedding = EXCLUDED.embedding`, p.table))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("%w: upsert embedding %s: %v", models.ErrUnavailable, id, err)
		}
	}
	return tx.Commit()
}

// candidateQuery orders by the bare distance expression so the planner can use the HNSW
// vector_cosine_ops index; ties are broken in Go.
func candidateQuery(table string) string {
	return fmt.Sprintf(`
		SELECT item_id, embedding <=> $1 AS distance
		FROM %s
		WHERE NOT (item_id = ANY($2))
		ORDER BY embedding <=> $1
		LIMIT $3`, table)
}

// FetchCandidates returns the k nearest eligible rows, ordered by cosine distance then item ID.
func (p *PGVectorIndex) FetchCandidates(ctx context.Context, query []float32, exclude map[string]struct{}, k int) ([]Candidate, error) {
	if err := Validate(query, p.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	excluded := make([]string, 0, len(exclude))
	for id := range exclude {
		excluded = append(excluded, id)
	}
	sort.Strings(excluded)

	rows, err := p.db.QueryContext(ctx, candidateQuery(p.table),
		pgvector.NewVector(query), pq.Array(excluded), k)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector search: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]Candidate, 0, k)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ItemID, &c.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: pgvector search: %v", models.ErrUnavailable, err)
	}
	sortCandidates(out)
	return out, nil
}

// Remove deletes vectors by ID.
func (p *PGVectorIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE item_id = ANY($1)`, p.table), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("%w: delete embeddings: %v", models.ErrUnavailable, err)
	}
	return nil
}

// Embedding returns the stored vector for id, or ErrNotFound.
func (p *PGVectorIndex) Embedding(ctx context.Context, id string) ([]float32, error) {
	var v pgvector.Vector
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT embedding FROM %s WHERE item_id = $1`, p.table), id).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("embedding %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load embedding: %v", models.ErrUnavailable, err)
	}
	return v.Slice(), nil
}

// Save is a no-op; PostgreSQL persists writes.
func (p *PGVectorIndex) Save(path string) error { return nil }

// Load is a no-op; PostgreSQL persists writes.
func (p *PGVectorIndex) Load(path string) error { return nil }

// Size returns the number of stored vectors, or 0 if the count query fails.
func (p *PGVectorIndex) Size() int {
	var n int
	if err := p.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&n); err != nil {
		p.logger.Warn("pgvector count failed", zap.Error(err))
		return 0
	}
	return n
}

// Close closes the database handle.
func (p *PGVectorIndex) Close() error {
	return p.db.Close()
}
