// Package repo provides postgres access for yearly aggregates
package repo

import (
	"context"
	"encoding/json"
	"time"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/aggregate/domain"
)

// TitleAuthor is the best-effort display join from the metadata cache
type TitleAuthor struct {
	Title  string
	Author string
}

// Repo is the persistence surface for aggregation
type Repo interface {
	ReadYear(ctx context.Context, year int) ([]domain.ScoreRow, error)
	ReplaceBookMetrics(ctx context.Context, year int, rows []domain.BookMetrics) error
	ReplaceRegionalMetrics(ctx context.Context, year int, rows []domain.RegionalMetrics) error
	ReplaceRankings(ctx context.Context, year int, rows []domain.RankingEntry) error
	TitlesFor(ctx context.Context, isbns []string) (map[string]TitleAuthor, error)
	BeginRun(ctx context.Context, id string, year int, startedAt time.Time) error
	FinishRun(ctx context.Context, id, status string, books, regions int, errText string) error
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

func (r *queries) ReadYear(ctx context.Context, year int) ([]domain.ScoreRow, error) {
	const sql = `
select isbn, region, week_date, rank, category, list_size, points
from weekly_scores
where week_date >= make_date($1, 1, 1) and week_date < make_date($1 + 1, 1, 1)
order by isbn, region, week_date
`
	rows, err := r.q.Query(ctx, sql, year)
	if err != nil {
		return nil, perr.FromPostgresf(err, "weekly scores read year %d", year)
	}
	defer rows.Close()
	var out []domain.ScoreRow
	for rows.Next() {
		var row domain.ScoreRow
		if err := rows.Scan(&row.ISBN, &row.Region, &row.WeekDate, &row.Rank, &row.Category, &row.ListSize, &row.Points); err != nil {
			return nil, perr.FromPostgresf(err, "weekly scores scan")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "weekly scores rows")
	}
	return out, nil
}

func (r *queries) ReplaceBookMetrics(ctx context.Context, year int, rows []domain.BookMetrics) error {
	if _, err := r.q.Exec(ctx, `delete from book_metrics where year = $1`, year); err != nil {
		return perr.FromPostgresf(err, "book metrics delete year %d", year)
	}
	const sql = `
insert into book_metrics
  (isbn, year, total_score, weeks_on_chart, regions_appeared,
   max_weekly_score, avg_weekly_score, avg_score_per_week, rsi_variance)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	for _, m := range rows {
		if _, err := r.q.Exec(ctx, sql,
			m.ISBN, m.Year, m.TotalScore, m.WeeksOnChart, m.RegionsAppeared,
			m.MaxWeeklyScore, m.AvgWeeklyScore, m.AvgScorePerWeek, m.RSIVariance,
		); err != nil {
			return perr.FromPostgresf(err, "book metrics insert %s", m.ISBN)
		}
	}
	return nil
}

func (r *queries) ReplaceRegionalMetrics(ctx context.Context, year int, rows []domain.RegionalMetrics) error {
	if _, err := r.q.Exec(ctx, `delete from regional_performance where year = $1`, year); err != nil {
		return perr.FromPostgresf(err, "regional performance delete year %d", year)
	}
	const sql = `
insert into regional_performance
  (isbn, region, year, regional_score, rsi, weeks_on_chart, best_rank, avg_rank, avg_score_per_week)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	for _, m := range rows {
		if _, err := r.q.Exec(ctx, sql,
			m.ISBN, m.Region, m.Year, m.RegionalScore, m.RSI,
			m.WeeksOnChart, m.BestRank, m.AvgRank, m.AvgScorePerWeek,
		); err != nil {
			return perr.FromPostgresf(err, "regional performance insert %s %s", m.ISBN, m.Region)
		}
	}
	return nil
}

func (r *queries) ReplaceRankings(ctx context.Context, year int, rows []domain.RankingEntry) error {
	if _, err := r.q.Exec(ctx, `delete from year_rankings where year = $1`, year); err != nil {
		return perr.FromPostgresf(err, "year rankings delete year %d", year)
	}
	const sql = `
insert into year_rankings (year, category, position, isbn, title, author, score, metadata)
values ($1, $2, $3, $4, $5, $6, $7, $8)
`
	for _, e := range rows {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "ranking metadata %s %s", e.Category, e.ISBN)
		}
		if _, err := r.q.Exec(ctx, sql,
			e.Year, e.Category, e.Position, e.ISBN, e.Title, e.Author, e.Score, meta,
		); err != nil {
			return perr.FromPostgresf(err, "year rankings insert %s %d", e.Category, e.Position)
		}
	}
	return nil
}

func (r *queries) TitlesFor(ctx context.Context, isbns []string) (map[string]TitleAuthor, error) {
	if len(isbns) == 0 {
		return map[string]TitleAuthor{}, nil
	}
	const sql = `
select isbn, title, author
from book_metadata_cache
where isbn = any($1) and not not_found
`
	rows, err := r.q.Query(ctx, sql, isbns)
	if err != nil {
		return nil, perr.FromPostgresf(err, "metadata titles read")
	}
	defer rows.Close()
	out := make(map[string]TitleAuthor, len(isbns))
	for rows.Next() {
		var isbn string
		var ta TitleAuthor
		if err := rows.Scan(&isbn, &ta.Title, &ta.Author); err != nil {
			return nil, perr.FromPostgresf(err, "metadata titles scan")
		}
		out[isbn] = ta
	}
	return out, rows.Err()
}

func (r *queries) BeginRun(ctx context.Context, id string, year int, startedAt time.Time) error {
	const sql = `
insert into aggregation_runs (id, year, started_at, status)
values ($1, $2, $3, 'running')
`
	if _, err := r.q.Exec(ctx, sql, id, year, startedAt); err != nil {
		return perr.FromPostgresf(err, "aggregation run begin %s", id)
	}
	return nil
}

func (r *queries) FinishRun(ctx context.Context, id, status string, books, regions int, errText string) error {
	const sql = `
update aggregation_runs
set finished_at = now(), status = $2, books = $3, regions = $4, err_text = nullif($5, '')
where id = $1
`
	if _, err := r.q.Exec(ctx, sql, id, status, books, regions, errText); err != nil {
		return perr.FromPostgresf(err, "aggregation run finish %s", id)
	}
	return nil
}
