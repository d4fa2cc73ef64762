package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		seniority INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_active_created ON items(active, created_at);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		headline TEXT NOT NULL DEFAULT '',
		skills TEXT NOT NULL DEFAULT '[]',
		preferred_locations TEXT NOT NULL DEFAULT '[]',
		seniority INTEGER NOT NULL DEFAULT 0,
		base_embedding BLOB NOT NULL,
		current_embedding BLOB,
		accepted_count INTEGER NOT NULL DEFAULT 0,
		generation INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS interactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		decision TEXT NOT NULL CHECK (decision IN ('accept', 'reject')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_user_decision ON interactions(user_id, decision, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CountItems returns the number of items, optionally only active ones.
func (s *SQLiteStorage) CountItems(ctx context.Context, activeOnly bool) (int64, error) {
	q := `SELECT COUNT(*) FROM items`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	return s.count(ctx, q)
}

// CountUsers returns the number of profiles.
func (s *SQLiteStorage) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

// CountInteractions returns the number of recorded interactions.
func (s *SQLiteStorage) CountInteractions(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM interactions`)
}

func (s *SQLiteStorage) count(ctx context.Context, q string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// unavailable wraps a driver error so callers can test for models.ErrUnavailable while
// keeping the driver error in the chain. Context cancellation is passed through untouched.
func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrUnavailable, err)
}

func isConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	var out []string
	if s == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return vector.Float32SliceToBytes(v)
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return vector.BytesToFloat32Slice(b)
}
