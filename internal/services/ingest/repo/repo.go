// Package repo provides postgres access for weekly score ingestion
package repo

import (
	"context"
	"time"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
)

// ScoreInsert is one scored observation ready for storage
type ScoreInsert struct {
	ISBN     string
	Region   string
	WeekDate time.Time
	Rank     int
	Category string
	ListSize int
	Points   float64
}

// Repo is the persistence surface for ingestion
type Repo interface {
	ReplaceWeek(ctx context.Context, region string, week time.Time, rows []ScoreInsert) error
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// ReplaceWeek swaps a region's rows for the week, never accumulating
func (r *queries) ReplaceWeek(ctx context.Context, region string, week time.Time, rows []ScoreInsert) error {
	if _, err := r.q.Exec(ctx,
		`delete from weekly_scores where region = $1 and week_date = $2`, region, week,
	); err != nil {
		return perr.FromPostgresf(err, "weekly scores delete %s %s", region, week.Format("2006-01-02"))
	}
	const sql = `
insert into weekly_scores (isbn, region, week_date, rank, category, list_size, points)
values ($1, $2, $3, $4, $5, $6, $7)
`
	for _, row := range rows {
		if _, err := r.q.Exec(ctx, sql,
			row.ISBN, row.Region, row.WeekDate, row.Rank, row.Category, row.ListSize, row.Points,
		); err != nil {
			return perr.FromPostgresf(err, "weekly scores insert %s %s", row.ISBN, region)
		}
	}
	return nil
}
