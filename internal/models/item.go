// Package models defines core data structures for items, user profiles, interactions, and feed responses.
package models

import (
	"strings"
	"time"
)

// Item is a catalog entry (a job posting) exposed to discovery.
type Item struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Company     string    `json:"company" db:"company"`
	Description string    `json:"description,omitempty" db:"description"`
	Tags        []string  `json:"tags" db:"tags"`
	Seniority   Seniority `json:"seniority" db:"seniority"`
	Location    string    `json:"location" db:"location"`
	Active      bool      `json:"active" db:"active"`
	Embedding   []float32 `json:"-" db:"embedding"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ItemInput is the input for creating or updating an item.
// Nil fields in an update leave the stored value unchanged.
type ItemInput struct {
	ID          string    `json:"id,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Company     *string   `json:"company,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Seniority   *string   `json:"seniority,omitempty"`
	Location    *string   `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ContentChanged reports whether the input touches a field that feeds the item embedding.
func (in *ItemInput) ContentChanged() bool {
	return in.Title != nil || in.Company != nil || in.Description != nil || in.Tags != nil
}

// NormalizeTags trims, drops empty entries, and de-duplicates tags case-insensitively,
// keeping the first spelling seen.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
