// Package repo provides postgres access for persisted year-end rankings
package repo

import (
	"context"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/rankings/domain"
)

// Repo is the read surface for year-end rankings
type Repo interface {
	List(ctx context.Context, year int, category string) ([]domain.Entry, error)
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

func (r *queries) List(ctx context.Context, year int, category string) ([]domain.Entry, error) {
	const sql = `
select year, category, position, isbn, title, author, score, metadata
from year_rankings
where year = $1 and ($2 = '' or category = $2 or category like $2 || ':%')
order by category, position
`
	rows, err := r.q.Query(ctx, sql, year, category)
	if err != nil {
		return nil, perr.FromPostgresf(err, "year rankings read %d", year)
	}
	defer rows.Close()
	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.Year, &e.Category, &e.Position, &e.ISBN, &e.Title, &e.Author, &e.Score, &e.Metadata); err != nil {
			return nil, perr.FromPostgresf(err, "year rankings scan")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
