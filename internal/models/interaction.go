package models

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the outcome of a swipe.
type Decision string

const (
	// DecisionAccept is a right swipe.
	DecisionAccept Decision = "accept"
	// DecisionReject is a left swipe.
	DecisionReject Decision = "reject"
)

// ParseDecision accepts "accept"/"reject" and the swipe directions "right"/"left".
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "right":
		return DecisionAccept, nil
	case "reject", "left":
		return DecisionReject, nil
	}
	return "", fmt.Errorf("%w: decision must be accept or reject, got %q", ErrInvalidInput, s)
}

// Interaction is an append-only swipe record.
type Interaction struct {
	UserID    string    `json:"user_id" db:"user_id"`
	ItemID    string    `json:"item_id" db:"item_id"`
	Decision  Decision  `json:"decision" db:"decision"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
