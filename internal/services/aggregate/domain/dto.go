// Package domain holds DTOs and ports for yearly aggregation
package domain

import (
	"context"
	"time"
)

// ScoreRow is one weekly rank observation as read from storage
type ScoreRow struct {
	ISBN     string
	Region   string
	WeekDate time.Time
	Rank     int
	Category string
	ListSize int
	Points   float64
}

// BookMetrics is the per-book yearly aggregate
type BookMetrics struct {
	ISBN            string  `json:"isbn"`
	Year            int     `json:"year"`
	TotalScore      float64 `json:"total_score"`
	WeeksOnChart    int     `json:"weeks_on_chart"`
	RegionsAppeared int     `json:"regions_appeared"`
	MaxWeeklyScore  float64 `json:"max_weekly_score"`
	AvgWeeklyScore  float64 `json:"avg_weekly_score"`
	AvgScorePerWeek float64 `json:"avg_score_per_week"`
	RSIVariance     float64 `json:"rsi_variance"`
}

// RegionalMetrics is the per-book per-region yearly aggregate
type RegionalMetrics struct {
	ISBN            string  `json:"isbn"`
	Region          string  `json:"region"`
	Year            int     `json:"year"`
	RegionalScore   float64 `json:"regional_score"`
	RSI             float64 `json:"rsi"`
	WeeksOnChart    int     `json:"weeks_on_chart"`
	BestRank        int     `json:"best_rank"`
	AvgRank         float64 `json:"avg_rank"`
	AvgScorePerWeek float64 `json:"avg_score_per_week"`
}

// RankingEntry is one positioned row of a year-end category
type RankingEntry struct {
	Year     int            `json:"year"`
	Category string         `json:"category"`
	Position int            `json:"position"`
	ISBN     string         `json:"isbn"`
	Title    string         `json:"title,omitempty"`
	Author   string         `json:"author,omitempty"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Ranking category names
const (
	CategoryMostRegional  = "most_regional"
	CategoryMostNational  = "most_national"
	CategoryMostEfficient = "most_efficient"
	CategoryRegionalTop   = "regional" // per-region lists use "regional:<region>"
)

// RunInput triggers one aggregation run
type RunInput struct {
	Year int `json:"year" validate:"omitempty,min=1900,max=2200" example:"2026"`
}

// RunOutput reports what an aggregation run produced
type RunOutput struct {
	RunID    string `json:"run_id" example:"6be3a0f2-9f9e-4c62-9d3a-0b2b7a4a1c11"`
	Year     int    `json:"year" example:"2026"`
	Books    int    `json:"books"`
	Regions  int    `json:"regions"`
	Rankings int    `json:"rankings"`
	Skipped  int    `json:"skipped"`
}

// ServicePort is the consumable aggregation surface other modules use
type ServicePort interface {
	Aggregate(ctx context.Context, in RunInput) (RunOutput, error)
}
