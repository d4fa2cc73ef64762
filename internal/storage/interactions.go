package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// RecordInteraction inserts the interaction and, for accepts, increments the user's accepted
// count in the same transaction.
func (s *SQLiteStorage) RecordInteraction(ctx context.Context, in *models.Interaction) (int, error) {
	if in.Decision != models.DecisionAccept && in.Decision != models.DecisionReject {
		return 0, fmt.Errorf("%w: unknown decision %q", models.ErrInvalidInput, in.Decision)
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin interaction", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, in.ItemID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("item not found: %s: %w", in.ItemID, models.ErrNotFound)
		}
		return 0, unavailable("check item", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (user_id, item_id, decision, created_at) VALUES (?, ?, ?, ?)`,
		in.UserID, in.ItemID, string(in.Decision), in.CreatedAt,
	); err != nil {
		if isConstraintViolation(err) {
			return 0, fmt.Errorf("user %s already swiped item %s: %w", in.UserID, in.ItemID, models.ErrConflict)
		}
		return 0, unavailable("insert interaction", err)
	}

	delta := 0
	if in.Decision == models.DecisionAccept {
		delta = 1
	}
	var accepted int
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET accepted_count = accepted_count + ?, updated_at = ?
		 WHERE id = ? RETURNING accepted_count`,
		delta, in.CreatedAt, in.UserID,
	).Scan(&accepted)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("user not found: %s: %w", in.UserID, models.ErrNotFound)
	}
	if err != nil {
		return 0, unavailable("update accepted count", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit interaction", err)
	}
	return accepted, nil
}

// ListInteractedItemIDs returns every item the user has accepted or rejected.
func (s *SQLiteStorage) ListInteractedItemIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM interactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, unavailable("list interactions", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan interaction", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list interactions", err)
	}
	return out, nil
}

// ListAcceptedItemEmbeddings orders by insertion sequence. Items deactivated after being
// accepted still count; items without an embedding are skipped.
func (s *SQLiteStorage) ListAcceptedItemEmbeddings(ctx context.Context, userID string) ([][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.embedding
		 FROM interactions x
		 JOIN items i ON i.id = x.item_id
		 WHERE x.user_id = ? AND x.decision = 'accept' AND i.embedding IS NOT NULL
		 ORDER BY x.seq`, userID)
	if err != nil {
		return nil, unavailable("list accepted embeddings", err)
	}
	defer rows.Close()

	var out [][]float32
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, unavailable("scan accepted embedding", err)
		}
		if v := decodeVector(b); len(v) > 0 {
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list accepted embeddings", err)
	}
	return out, nil
}
