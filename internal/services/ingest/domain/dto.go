// Package domain holds DTOs and ports for weekly list ingestion
package domain

import "context"

// ListEntry is one ranked book on a regional list
type ListEntry struct {
	ISBN string `json:"isbn" validate:"required,min=10,max=17"`
	Rank int    `json:"rank" validate:"required,min=1"`
}

// RegionList is one region's list for the week
type RegionList struct {
	Region   string      `json:"region" validate:"required"`
	Category string      `json:"category"`
	Entries  []ListEntry `json:"entries" validate:"required,min=1,dive"`
}

// WeekPayload is one week's lists across all regions
type WeekPayload struct {
	Week    string       `json:"week" validate:"required,week_date" example:"2026-08-26"`
	Regions []RegionList `json:"regions" validate:"required,min=1,dive"`
}

// IngestOutput reports what one ingestion wrote
type IngestOutput struct {
	JobID    string `json:"job_id"`
	Week     string `json:"week"`
	Regions  int    `json:"regions"`
	Rows     int    `json:"rows"`
	Archived bool   `json:"archived"`
}

// IngestorPort is the consumable ingestion surface
type IngestorPort interface {
	IngestWeek(ctx context.Context, payload WeekPayload) (IngestOutput, error)
}
