// Package repo provides postgres access for bestseller snapshot records
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
)

// Record is one cached snapshot row
type Record struct {
	CacheKey       string
	WeekDate       time.Time
	ComparisonWeek *time.Time
	Payload        []byte
	LastFetchedAt  time.Time
}

// Repo is the persistence surface for snapshot records
type Repo interface {
	Get(ctx context.Context, cacheKey string) (Record, error)
	Upsert(ctx context.Context, rec Record) error
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

func (r *queries) Get(ctx context.Context, cacheKey string) (Record, error) {
	const sql = `
select cache_key, week_date, comparison_week, payload, last_fetched_at
from bestseller_snapshots
where cache_key = $1
`
	row := r.q.QueryRow(ctx, sql, cacheKey)
	var rec Record
	if err := row.Scan(&rec.CacheKey, &rec.WeekDate, &rec.ComparisonWeek, &rec.Payload, &rec.LastFetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, perr.ErrNotFound
		}
		return Record{}, perr.FromPostgresf(err, "snapshot read %s", cacheKey)
	}
	return rec, nil
}

func (r *queries) Upsert(ctx context.Context, rec Record) error {
	const sql = `
insert into bestseller_snapshots (cache_key, week_date, comparison_week, payload, last_fetched_at)
values ($1, $2, $3, $4, $5)
on conflict (cache_key) do update set
  week_date       = excluded.week_date,
  comparison_week = excluded.comparison_week,
  payload         = excluded.payload,
  last_fetched_at = excluded.last_fetched_at
`
	if _, err := r.q.Exec(ctx, sql,
		rec.CacheKey, rec.WeekDate, rec.ComparisonWeek, rec.Payload, rec.LastFetchedAt,
	); err != nil {
		return perr.FromPostgresf(err, "snapshot upsert %s", rec.CacheKey)
	}
	return nil
}
