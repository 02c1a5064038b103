// Package service implements weekly list ingestion
//
// One ingestion scores every entry of a week's regional lists, replaces the
// stored rows per (region, week) in a single transaction, records the week's
// snapshot for the read path, and archives the raw observations to the
// columnar store when one is configured
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"bestsellers/internal/core/bookkey"
	"bestsellers/internal/core/scoring"
	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/logger"
	"bestsellers/internal/platform/store"
	"bestsellers/internal/services/ingest/domain"
	"bestsellers/internal/services/ingest/repo"
	snapdom "bestsellers/internal/services/snapshots/domain"
	snaprepo "bestsellers/internal/services/snapshots/repo"
)

// Service defines the ingestion service contract
type Service interface {
	domain.IngestorPort
}

// Svc implements the ingestion service
type Svc struct {
	binder     repokit.Binder[repo.Repo]
	snapBinder repokit.Binder[snaprepo.Repo]
	db         repokit.TxRunner
	ch         store.Clickhouse
	log        logger.Logger
	now        func() time.Time
}

// New constructs an ingestion service
// ch may be nil, in which case archiving is skipped
func New(db repokit.TxRunner, ch store.Clickhouse) *Svc {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	return &Svc{
		binder:     repo.NewPG(),
		snapBinder: snaprepo.NewPG(),
		db:         db,
		ch:         ch,
		log:        *logger.Named("ingest"),
		now:        time.Now,
	}
}

// IngestWeek validates, scores and stores one week's lists
// Any malformed entry rejects the whole payload before anything is written
func (s *Svc) IngestWeek(ctx context.Context, payload domain.WeekPayload) (domain.IngestOutput, error) {
	week, err := time.Parse("2006-01-02", payload.Week)
	if err != nil {
		return domain.IngestOutput{}, perr.InvalidArgf("week must be YYYY-MM-DD, got %q", payload.Week)
	}
	if len(payload.Regions) == 0 {
		return domain.IngestOutput{}, perr.InvalidArgf("payload has no regional lists")
	}

	jobID := uuid.NewString()
	ctx = logger.WithRun(ctx, jobID)
	log := logger.C(ctx)

	byRegion, rows, err := s.score(week, payload)
	if err != nil {
		return domain.IngestOutput{}, err
	}

	snapPayload, err := json.Marshal(payload)
	if err != nil {
		return domain.IngestOutput{}, perr.Wrapf(err, perr.ErrorCodeJSON, "snapshot payload encode")
	}

	now := s.now().UTC()
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		tr := s.binder.Bind(q)
		for _, rl := range payload.Regions {
			if err := tr.ReplaceWeek(ctx, rl.Region, week, byRegion[rl.Region]); err != nil {
				return err
			}
		}
		return s.snapBinder.Bind(q).Upsert(ctx, snaprepo.Record{
			CacheKey:      snapdom.CacheKey(week, time.Time{}),
			WeekDate:      week,
			Payload:       snapPayload,
			LastFetchedAt: now,
		})
	})
	if err != nil {
		return domain.IngestOutput{}, err
	}

	archived := s.archive(ctx, week, rows)

	log.Info().
		Str("week", payload.Week).
		Int("regions", len(payload.Regions)).
		Int("rows", len(rows)).
		Bool("archived", archived).
		Msg("week ingested")

	return domain.IngestOutput{
		JobID:    jobID,
		Week:     payload.Week,
		Regions:  len(payload.Regions),
		Rows:     len(rows),
		Archived: archived,
	}, nil
}

// score validates every entry and converts ranks to points
func (s *Svc) score(week time.Time, payload domain.WeekPayload) (map[string][]repo.ScoreInsert, []repo.ScoreInsert, error) {
	byRegion := make(map[string][]repo.ScoreInsert, len(payload.Regions))
	var all []repo.ScoreInsert
	for _, rl := range payload.Regions {
		if rl.Region == "" {
			return nil, nil, perr.InvalidArgf("regional list without a region name")
		}
		if _, dup := byRegion[rl.Region]; dup {
			return nil, nil, perr.InvalidArgf("region %s appears twice in payload", rl.Region)
		}
		listSize := len(rl.Entries)
		inserts := make([]repo.ScoreInsert, 0, listSize)
		for _, e := range rl.Entries {
			isbn, err := bookkey.NormalizeISBN(e.ISBN)
			if err != nil {
				return nil, nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "region %s", rl.Region)
			}
			points, err := scoring.Score(e.Rank, listSize)
			if err != nil {
				return nil, nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "region %s isbn %s", rl.Region, isbn)
			}
			inserts = append(inserts, repo.ScoreInsert{
				ISBN:     isbn,
				Region:   rl.Region,
				WeekDate: week,
				Rank:     e.Rank,
				Category: rl.Category,
				ListSize: listSize,
				Points:   points,
			})
		}
		byRegion[rl.Region] = inserts
		all = append(all, inserts...)
	}
	return byRegion, all, nil
}

// archive writes raw observations to the columnar store best effort
func (s *Svc) archive(ctx context.Context, week time.Time, rows []repo.ScoreInsert) bool {
	if s.ch == nil || len(rows) == 0 {
		return false
	}
	batch := make([][]any, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, []any{week, row.Region, row.ISBN, int32(row.Rank), int32(row.ListSize), row.Points})
	}
	if err := s.ch.Insert(ctx, "rank_observations", batch); err != nil {
		s.log.Warn().Err(err).Int("rows", len(rows)).Msg("columnar archive write failed")
		return false
	}
	return true
}
