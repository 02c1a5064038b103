// Package service implements snapshot retrieval with freshness classification
package service

import (
	"context"
	"strings"
	"time"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/logger"
	ptime "bestsellers/internal/platform/time"
	"bestsellers/internal/services/snapshots/domain"
	"bestsellers/internal/services/snapshots/repo"
)

// Service defines the snapshots service contract
type Service interface {
	domain.ServicePort
}

// Config tunes freshness windows and the publication schedule
// each field defaults independently so partial configs stay sane
type Config struct {
	FreshFor      time.Duration // default 4h
	StaleFor      time.Duration // default 24h, past this is unavailable
	ListWeekday   string        // sunday through saturday, default wednesday
	IngestHourUTC int           // 1 to 23, default 8; zero reads as unset

	weekday time.Weekday // resolved by withDefaults
}

func (c Config) withDefaults() Config {
	if c.FreshFor <= 0 {
		c.FreshFor = 4 * time.Hour
	}
	if c.StaleFor <= c.FreshFor {
		c.StaleFor = c.FreshFor + 20*time.Hour
	}
	wd, ok := weekdays[strings.ToLower(c.ListWeekday)]
	if !ok {
		wd = time.Wednesday
	}
	c.weekday = wd
	if c.IngestHourUTC <= 0 || c.IngestHourUTC > 23 {
		c.IngestHourUTC = 8
	}
	return c
}

// Svc implements the snapshots service
type Svc struct {
	cfg    Config
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	log    logger.Logger
	now    func() time.Time
}

// New constructs a snapshots service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], cfg Config) *Svc {
	if db == nil {
		panic("snapshots.Service requires a non nil TxRunner")
	}
	return &Svc{
		cfg:    cfg.withDefaults(),
		binder: binder,
		db:     db,
		log:    *logger.Named("snapshots"),
		now:    time.Now,
	}
}

// Get serves one week's snapshot with its freshness posture
// A zero Week defaults to the most recent list weekday
func (s *Svc) Get(ctx context.Context, in domain.GetInput) (domain.GetOutput, error) {
	now := s.now().UTC()

	week := in.Week
	if week.IsZero() {
		week = ptime.PrevWeekday(now, s.cfg.weekday)
	}
	week = ptime.UTCDate(week)
	cmp := in.ComparisonWeek
	if !cmp.IsZero() {
		cmp = ptime.UTCDate(cmp)
	}

	etag := domain.ETagFor(week, cmp)
	out := domain.GetOutput{
		ETag:        etag,
		CurrentWeek: week.Format("2006-01-02"),
		NextRefresh: s.nextRefresh(week),
	}
	if !cmp.IsZero() {
		out.ComparisonWeek = cmp.Format("2006-01-02")
	}

	q := s.binder.Bind(s.db)
	rec, err := q.Get(ctx, domain.CacheKey(week, cmp))
	if err != nil && !cmp.IsZero() && perr.IsCode(err, perr.ErrorCodeNotFound) {
		// ingestion writes the base week record only, comparison requests fall back to it
		rec, err = q.Get(ctx, domain.CacheKey(week, time.Time{}))
	}
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			out.Status = domain.StatusNotFound
			return out, perr.NotFoundf("snapshot for week %s not yet available, next refresh %s",
				out.CurrentWeek, out.NextRefresh.Format(time.RFC3339))
		}
		return domain.GetOutput{}, err
	}

	age := now.Sub(rec.LastFetchedAt)
	switch {
	case age < s.cfg.FreshFor:
		out.Status = domain.StatusFresh
	case age < s.cfg.StaleFor:
		out.Status = domain.StatusStale
	default:
		out.Status = domain.StatusUnavailable
	}
	out.LastFetched = rec.LastFetchedAt

	if in.IfNoneMatch != "" && in.IfNoneMatch == etag {
		out.NotModified = true
		return out, nil
	}

	// unavailable still carries the last known payload best effort
	out.Payload = rec.Payload
	return out, nil
}

// nextRefresh is the week after the snapshot week at the daily ingest hour
func (s *Svc) nextRefresh(week time.Time) time.Time {
	d := week.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), s.cfg.IngestHourUTC, 0, 0, 0, time.UTC)
}
