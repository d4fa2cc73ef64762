package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

const itemColumns = `id, title, company, description, tags, seniority, location, active, embedding, created_at, updated_at`

// getItemsBatch keeps IN lists well under SQLite's bound-parameter limit.
const getItemsBatch = 500

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var tags string
	var seniority int
	var active int
	var embedding []byte
	if err := row.Scan(&item.ID, &item.Title, &item.Company, &item.Description, &tags, &seniority,
		&item.Location, &active, &embedding, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if item.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	item.Seniority = models.Seniority(seniority)
	item.Active = active == 1
	item.Embedding = decodeVector(embedding)
	return &item, nil
}

// CreateItem inserts an item. CreatedAt is kept when set so imports can carry posting dates.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *models.Item) error {
	tags, err := encodeStrings(item.Tags)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Company, item.Description, tags, int(item.Seniority),
		item.Location, boolToInt(item.Active), encodeVector(item.Embedding), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("item %s already exists: %w", item.ID, models.ErrConflict)
		}
		return unavailable("create item", err)
	}
	return nil
}

// GetItem returns an item by ID, active or not.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found: %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get item", err)
	}
	return item, nil
}

// GetItems loads items in batches.
func (s *SQLiteStorage) GetItems(ctx context.Context, ids []string) (map[string]*models.Item, error) {
	out := make(map[string]*models.Item, len(ids))
	for start := 0; start < len(ids); start += getItemsBatch {
		end := start + getItemsBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, unavailable("get items", err)
		}
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				rows.Close()
				return nil, unavailable("scan item", err)
			}
			out[item.ID] = item
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, unavailable("get items", err)
		}
	}
	return out, nil
}

// UpdateItem overwrites every mutable column of an existing item.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, item *models.Item) error {
	tags, err := encodeStrings(item.Tags)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET title = ?, company = ?, description = ?, tags = ?, seniority = ?,
		 location = ?, active = ?, embedding = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Company, item.Description, tags, int(item.Seniority),
		item.Location, boolToInt(item.Active), encodeVector(item.Embedding), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return unavailable("update item", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s: %w", item.ID, models.ErrNotFound)
	}
	return nil
}

// DeactivateItem soft-deletes an item. Deactivating an inactive item is not an error.
func (s *SQLiteStorage) DeactivateItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return unavailable("deactivate item", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListItems returns items newest first.
func (s *SQLiteStorage) ListItems(ctx context.Context, activeOnly bool, offset, limit int) ([]*models.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, unavailable("list items", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, unavailable("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list items", err)
	}
	return items, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
