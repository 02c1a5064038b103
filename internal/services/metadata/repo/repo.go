// Package repo provides postgres access for the persistent metadata cache
package repo

import (
	"context"
	"time"

	perr "bestsellers/internal/platform/errors"

	"bestsellers/internal/modkit/repokit"
)

// Record is one row of the persistent cache tier
type Record struct {
	ISBN      string
	Title     string
	Author    string
	Category  string
	CoverURL  string
	Published string
	NotFound  bool
	FetchedAt time.Time
}

// Repo is the minimal persistence surface for the metadata cache
type Repo interface {
	GetMany(ctx context.Context, isbns []string) ([]Record, error)
	UpsertMany(ctx context.Context, recs []Record) error
	DeleteOlderThan(ctx context.Context, maxAge, sentinelMaxAge time.Duration) (int64, error)
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

func (r *queries) GetMany(ctx context.Context, isbns []string) ([]Record, error) {
	if len(isbns) == 0 {
		return nil, nil
	}
	const sql = `
select isbn, title, author, category, cover_url, published, not_found, fetched_at
from book_metadata_cache
where isbn = any($1)
`
	rows, err := r.q.Query(ctx, sql, isbns)
	if err != nil {
		return nil, perr.FromPostgresf(err, "metadata cache read")
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ISBN, &rec.Title, &rec.Author, &rec.Category,
			&rec.CoverURL, &rec.Published, &rec.NotFound, &rec.FetchedAt,
		); err != nil {
			return nil, perr.FromPostgresf(err, "metadata cache scan")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *queries) UpsertMany(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	const sql = `
insert into book_metadata_cache
(isbn, title, author, category, cover_url, published, not_found, fetched_at)
values ($1, $2, $3, $4, $5, $6, $7, $8)
on conflict (isbn) do update set
title = excluded.title,
author = excluded.author,
category = excluded.category,
cover_url = excluded.cover_url,
published = excluded.published,
not_found = excluded.not_found,
fetched_at = excluded.fetched_at
`
	for _, rec := range recs {
		if _, err := r.q.Exec(ctx, sql,
			rec.ISBN, rec.Title, rec.Author, rec.Category,
			rec.CoverURL, rec.Published, rec.NotFound, rec.FetchedAt,
		); err != nil {
			return perr.FromPostgresf(err, "metadata cache upsert %s", rec.ISBN)
		}
	}
	return nil
}

func (r *queries) DeleteOlderThan(ctx context.Context, maxAge, sentinelMaxAge time.Duration) (int64, error) {
	const sql = `
delete from book_metadata_cache
where (not not_found and fetched_at < now() - make_interval(secs => $1))
or (not_found and fetched_at < now() - make_interval(secs => $2))
`
	tag, err := r.q.Exec(ctx, sql, maxAge.Seconds(), sentinelMaxAge.Seconds())
	if err != nil {
		return 0, perr.FromPostgresf(err, "metadata cache eviction")
	}
	return tag.RowsAffected(), nil
}
