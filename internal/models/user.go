package models

import "time"

// UserProfile is the ranking-relevant view of a user.
// BaseEmbedding is computed once from the declared attributes and never rewritten;
// CurrentEmbedding is the only field the evolution engine writes.
type UserProfile struct {
	ID                 string    `json:"id" db:"id"`
	Headline           string    `json:"headline,omitempty" db:"headline"`
	Skills             []string  `json:"skills" db:"skills"`
	PreferredLocations []string  `json:"preferred_locations" db:"preferred_locations"`
	Seniority          Seniority `json:"seniority" db:"seniority"`
	BaseEmbedding      []float32 `json:"-" db:"base_embedding"`
	CurrentEmbedding   []float32 `json:"-" db:"current_embedding"`
	AcceptedCount      int       `json:"accepted_count" db:"accepted_count"`
	Generation         int64     `json:"generation" db:"generation"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// QueryEmbedding returns the vector used for discovery: the evolved vector when present,
// the base vector otherwise.
func (u *UserProfile) QueryEmbedding() []float32 {
	if len(u.CurrentEmbedding) > 0 {
		return u.CurrentEmbedding
	}
	return u.BaseEmbedding
}

// UserInput holds the declared attributes a profile is created from.
type UserInput struct {
	ID                 string   `json:"id,omitempty"`
	Headline           string   `json:"headline,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	PreferredLocations []string `json:"preferred_locations,omitempty"`
	Seniority          string   `json:"seniority,omitempty"`
	ResumeText         string   `json:"resume_text,omitempty"`
}
