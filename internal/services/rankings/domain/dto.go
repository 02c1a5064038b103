// Package domain holds DTOs and ports for serving year-end rankings
package domain

import (
	"context"
	"encoding/json"
)

// Entry is one positioned row of a persisted year-end category
type Entry struct {
	Year     int             `json:"year" example:"2026"`
	Category string          `json:"category" example:"most_national"`
	Position int             `json:"position" example:"1"`
	ISBN     string          `json:"isbn" example:"9780306406157"`
	Title    string          `json:"title,omitempty"`
	Author   string          `json:"author,omitempty"`
	Score    float64         `json:"score"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ListInput selects a year's rankings, optionally narrowed to one category
type ListInput struct {
	Year     int
	Category string // empty means all categories
}

// ListOutput groups entries by category in deterministic order
type ListOutput struct {
	Year       int                `json:"year"`
	Categories map[string][]Entry `json:"categories"`
}

// ServicePort is the consumable rankings surface other modules use
type ServicePort interface {
	List(ctx context.Context, in ListInput) (ListOutput, error)
}
