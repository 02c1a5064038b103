// Package domain holds DTOs and ports for the snapshot cache
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Status describes how trustworthy a served snapshot is
type Status string

// Snapshot statuses
const (
	StatusFresh       Status = "fresh"       // fetched under the fresh window
	StatusStale       Status = "stale"       // past fresh, still serveable
	StatusUnavailable Status = "unavailable" // past the stale window, best effort
	StatusNotFound    Status = "not_found"   // no record ingested yet
)

// GetInput asks for one week's snapshot, optionally with a comparison week
type GetInput struct {
	Week           time.Time
	ComparisonWeek time.Time // zero means no comparison
	IfNoneMatch    string
}

// GetOutput is the served snapshot with its cache posture
type GetOutput struct {
	Status         Status          `json:"status" example:"fresh"`
	ETag           string          `json:"etag" example:"\"snap-1a2b3c4d5e6f7a8b\""`
	CurrentWeek    string          `json:"current_week" example:"2026-08-26"`
	ComparisonWeek string          `json:"comparison_week,omitempty" example:"2026-08-19"`
	LastFetched    time.Time       `json:"last_fetched"`
	NextRefresh    time.Time       `json:"next_refresh"`
	NotModified    bool            `json:"-"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// CacheKey derives the deterministic record key for a week pair
func CacheKey(week, comparison time.Time) string {
	key := "snapshot:" + week.Format("2006-01-02") + ":"
	if !comparison.IsZero() {
		key += comparison.Format("2006-01-02")
	}
	return key
}

// ETagFor derives a strong validator from the week pair
func ETagFor(week, comparison time.Time) string {
	sum := sha256.Sum256([]byte(CacheKey(week, comparison)))
	return `"snap-` + hex.EncodeToString(sum[:8]) + `"`
}

// ServicePort is the consumable snapshot surface other modules use
type ServicePort interface {
	Get(ctx context.Context, in GetInput) (GetOutput, error)
}
