// Package service serves persisted year-end rankings read only
package service

import (
	"context"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/rankings/domain"
	"bestsellers/internal/services/rankings/repo"
)

// Service defines the rankings service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the rankings service
type Svc struct {
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New constructs a rankings service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("rankings.Service requires a non nil TxRunner")
	}
	return &Svc{binder: binder, db: db}
}

// List returns one year's persisted rankings grouped by category
func (s *Svc) List(ctx context.Context, in domain.ListInput) (domain.ListOutput, error) {
	if in.Year < 1900 || in.Year > 2200 {
		return domain.ListOutput{}, perr.InvalidArgf("year %d out of range", in.Year)
	}
	entries, err := s.binder.Bind(s.db).List(ctx, in.Year, in.Category)
	if err != nil {
		return domain.ListOutput{}, err
	}
	if len(entries) == 0 {
		return domain.ListOutput{}, perr.NotFoundf("no rankings for year %d", in.Year)
	}
	out := domain.ListOutput{Year: in.Year, Categories: make(map[string][]domain.Entry)}
	for _, e := range entries {
		out.Categories[e.Category] = append(out.Categories[e.Category], e)
	}
	return out, nil
}
