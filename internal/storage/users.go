package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperjump/matchfeed/internal/models"
)

// CreateUser inserts a profile. CurrentEmbedding defaults to a copy of BaseEmbedding.
func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.UserProfile) error {
	if len(user.BaseEmbedding) == 0 {
		return fmt.Errorf("%w: user %s has no base embedding", models.ErrInvalidInput, user.ID)
	}
	skills, err := encodeStrings(user.Skills)
	if err != nil {
		return err
	}
	locations, err := encodeStrings(user.PreferredLocations)
	if err != nil {
		return err
	}
	if len(user.CurrentEmbedding) == 0 {
		user.CurrentEmbedding = append([]float32(nil), user.BaseEmbedding...)
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, headline, skills, preferred_locations, seniority, base_embedding,
		 current_embedding, accepted_count, generation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		user.ID, user.Headline, skills, locations, int(user.Seniority),
		encodeVector(user.BaseEmbedding), encodeVector(user.CurrentEmbedding), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("user %s already exists: %w", user.ID, models.ErrConflict)
		}
		return unavailable("create user", err)
	}
	user.AcceptedCount = 0
	user.Generation = 0
	return nil
}

// GetUser returns a profile by ID.
func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	var user models.UserProfile
	var skills, locations string
	var seniority int
	var base, current []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT id, headline, skills, preferred_locations, seniority, base_embedding, current_embedding,
		 accepted_count, generation, created_at, updated_at
		 FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Headline, &skills, &locations, &seniority, &base, &current,
		&user.AcceptedCount, &user.Generation, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	if user.Skills, err = decodeStrings(skills); err != nil {
		return nil, err
	}
	if user.PreferredLocations, err = decodeStrings(locations); err != nil {
		return nil, err
	}
	user.Seniority = models.Seniority(seniority)
	user.BaseEmbedding = decodeVector(base)
	user.CurrentEmbedding = decodeVector(current)
	return &user, nil
}

// WriteProfileEmbedding is a single UPDATE ... RETURNING, so readers never observe a partial write.
func (s *SQLiteStorage) WriteProfileEmbedding(ctx context.Context, userID string, embedding []float32) (int64, error) {
	if len(embedding) == 0 {
		return 0, fmt.Errorf("%w: empty profile embedding", models.ErrInvalidInput)
	}
	var generation int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET current_embedding = ?, generation = generation + 1, updated_at = ?
		 WHERE id = ? RETURNING generation`,
		encodeVector(embedding), time.Now().UTC(), userID,
	).Scan(&generation)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("user not found: %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return 0, unavailable("write profile embedding", err)
	}
	return generation, nil
}
