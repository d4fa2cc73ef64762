// Package storage defines the persistence interface for items, profiles and interactions.
package storage

import (
	"context"

	"github.com/hyperjump/matchfeed/internal/models"
)

// Storage defines item, profile and interaction persistence operations.
//
// Lookups of missing rows return errors wrapping models.ErrNotFound; driver failures wrap
// models.ErrUnavailable.
type Storage interface {
	// Item operations
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	// GetItems returns the items found among ids, keyed by ID. Missing IDs are absent from the map.
	GetItems(ctx context.Context, ids []string) (map[string]*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeactivateItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, activeOnly bool, offset, limit int) ([]*models.Item, error)

	// Profile operations
	CreateUser(ctx context.Context, user *models.UserProfile) error
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	// WriteProfileEmbedding replaces the current embedding and bumps the generation in one
	// statement, returning the new generation.
	WriteProfileEmbedding(ctx context.Context, userID string, embedding []float32) (int64, error)

	// Interaction operations
	// RecordInteraction appends an interaction and returns the user's accepted count after it.
	// A second interaction for the same (user, item) fails with models.ErrConflict.
	RecordInteraction(ctx context.Context, in *models.Interaction) (int, error)
	ListInteractedItemIDs(ctx context.Context, userID string) (map[string]struct{}, error)
	// ListAcceptedItemEmbeddings returns embeddings of accepted items in the order they were accepted.
	ListAcceptedItemEmbeddings(ctx context.Context, userID string) ([][]float32, error)

	// Stats
	CountItems(ctx context.Context, activeOnly bool) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountInteractions(ctx context.Context) (int64, error)

	Close() error
}
