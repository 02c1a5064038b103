// Package service implements the yearly metrics aggregator
//
// One run folds every weekly score row for a year into per-book and
// per-region aggregates, derives the year-end ranking categories, and
// replaces all three tables for that year in a single transaction.
// Identical input always produces identical rows
package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"bestsellers/internal/core/scoring"
	"bestsellers/internal/modkit/repokit"
	"bestsellers/internal/platform/logger"
	"bestsellers/internal/services/aggregate/domain"
	"bestsellers/internal/services/aggregate/repo"
)

// Service defines the aggregation service contract
type Service interface {
	domain.ServicePort
}

// LeaseFunc runs do under a per-year lease when configured
type LeaseFunc func(ctx context.Context, year int, do func(context.Context) error) error

// Svc implements the aggregation service
type Svc struct {
	cfg    Config
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	log    logger.Logger
	lease  LeaseFunc
	now    func() time.Time
}

// New constructs an aggregation service
// lease may be nil, in which case runs are unguarded
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], lease LeaseFunc, cfg Config) *Svc {
	if db == nil {
		panic("aggregate.Service requires a non nil TxRunner")
	}
	return &Svc{
		cfg:    cfg.withDefaults(),
		binder: binder,
		db:     db,
		log:    *logger.Named("aggregate"),
		lease:  lease,
		now:    time.Now,
	}
}

// Aggregate recomputes all aggregates and rankings for one year
func (s *Svc) Aggregate(ctx context.Context, in domain.RunInput) (domain.RunOutput, error) {
	year := in.Year
	if year == 0 {
		year = s.now().UTC().Year()
	}

	var out domain.RunOutput
	work := func(ctx context.Context) error {
		var err error
		out, err = s.run(ctx, year)
		return err
	}
	if s.lease != nil {
		return out, s.lease(ctx, year, work)
	}
	return out, work(ctx)
}

func (s *Svc) run(ctx context.Context, year int) (domain.RunOutput, error) {
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx)

	r := s.binder.Bind(s.db)
	if err := r.BeginRun(ctx, runID, year, s.now().UTC()); err != nil {
		return domain.RunOutput{}, err
	}

	rows, err := r.ReadYear(ctx, year)
	if err != nil {
		s.finish(ctx, runID, "error", 0, 0, err)
		return domain.RunOutput{}, err
	}

	books, regionals, skipped := s.fold(ctx, year, rows)

	titles := s.titles(ctx, books)
	rankings := BuildRankings(s.cfg, year, books, regionals, titles)

	// all three tables move together or not at all
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		tr := s.binder.Bind(q)
		if err := tr.ReplaceBookMetrics(ctx, year, books); err != nil {
			return err
		}
		if err := tr.ReplaceRegionalMetrics(ctx, year, regionals); err != nil {
			return err
		}
		return tr.ReplaceRankings(ctx, year, rankings)
	})
	if err != nil {
		s.finish(ctx, runID, "error", 0, 0, err)
		return domain.RunOutput{}, err
	}

	s.finish(ctx, runID, "ok", len(books), len(regionals), nil)
	log.Info().
		Int("year", year).
		Int("books", len(books)).
		Int("regions", len(regionals)).
		Int("rankings", len(rankings)).
		Int("skipped", skipped).
		Msg("aggregation run complete")

	return domain.RunOutput{
		RunID:    runID,
		Year:     year,
		Books:    len(books),
		Regions:  len(regionals),
		Rankings: len(rankings),
		Skipped:  skipped,
	}, nil
}

func (s *Svc) finish(ctx context.Context, runID, status string, books, regions int, cause error) {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	if err := s.binder.Bind(s.db).FinishRun(ctx, runID, status, books, regions, errText); err != nil {
		s.log.Warn().Err(err).Str("run_id", runID).Msg("run bookkeeping write failed")
	}
}

// titles joins display names from the metadata cache best effort
func (s *Svc) titles(ctx context.Context, books []domain.BookMetrics) map[string]repo.TitleAuthor {
	isbns := make([]string, 0, len(books))
	for _, b := range books {
		isbns = append(isbns, b.ISBN)
	}
	titles, err := s.binder.Bind(s.db).TitlesFor(ctx, isbns)
	if err != nil {
		s.log.Warn().Err(err).Msg("title join unavailable, rankings will carry isbns only")
		return map[string]repo.TitleAuthor{}
	}
	return titles
}

type regionAgg struct {
	score    float64
	weeks    map[time.Time]struct{}
	bestRank int
	rankSum  int
	rows     int
}

type bookAgg struct {
	total   float64
	max     float64
	rows    int
	weeks   map[time.Time]struct{}
	regions map[string]*regionAgg
}

// fold reduces raw rows into yearly aggregates, skipping malformed rows
func (s *Svc) fold(ctx context.Context, year int, rows []domain.ScoreRow) ([]domain.BookMetrics, []domain.RegionalMetrics, int) {
	log := logger.C(ctx)
	agg := make(map[string]*bookAgg)
	skipped := 0

	for _, row := range rows {
		if reason := malformed(row); reason != "" {
			skipped++
			log.Warn().
				Str("isbn", row.ISBN).
				Str("region", row.Region).
				Str("week", row.WeekDate.Format("2006-01-02")).
				Str("reason", reason).
				Msg("skipping malformed score row")
			continue
		}

		b := agg[row.ISBN]
		if b == nil {
			b = &bookAgg{weeks: make(map[time.Time]struct{}), regions: make(map[string]*regionAgg)}
			agg[row.ISBN] = b
		}
		week := row.WeekDate.UTC().Truncate(24 * time.Hour)
		b.total += row.Points
		b.rows++
		b.weeks[week] = struct{}{}
		if row.Points > b.max {
			b.max = row.Points
		}

		reg := b.regions[row.Region]
		if reg == nil {
			reg = &regionAgg{weeks: make(map[time.Time]struct{}), bestRank: row.Rank}
			b.regions[row.Region] = reg
		}
		reg.score += row.Points
		reg.weeks[week] = struct{}{}
		reg.rankSum += row.Rank
		reg.rows++
		if row.Rank < reg.bestRank {
			reg.bestRank = row.Rank
		}
	}

	isbns := make([]string, 0, len(agg))
	for isbn := range agg {
		isbns = append(isbns, isbn)
	}
	sort.Strings(isbns)

	var books []domain.BookMetrics
	var regionals []domain.RegionalMetrics
	for _, isbn := range isbns {
		b := agg[isbn]

		regions := make([]string, 0, len(b.regions))
		for region := range b.regions {
			regions = append(regions, region)
		}
		sort.Strings(regions)

		rsis := make([]float64, 0, len(regions))
		for _, region := range regions {
			reg := b.regions[region]
			rsi := 0.0
			if b.total > 0 {
				rsi = reg.score / b.total
			}
			rsis = append(rsis, rsi)
			regionals = append(regionals, domain.RegionalMetrics{
				ISBN:            isbn,
				Region:          region,
				Year:            year,
				RegionalScore:   reg.score,
				RSI:             rsi,
				WeeksOnChart:    len(reg.weeks),
				BestRank:        reg.bestRank,
				AvgRank:         float64(reg.rankSum) / float64(reg.rows),
				AvgScorePerWeek: reg.score / float64(len(reg.weeks)),
			})
		}

		books = append(books, domain.BookMetrics{
			ISBN:            isbn,
			Year:            year,
			TotalScore:      b.total,
			WeeksOnChart:    len(b.weeks),
			RegionsAppeared: len(b.regions),
			MaxWeeklyScore:  b.max,
			AvgWeeklyScore:  b.total / float64(b.rows),
			AvgScorePerWeek: b.total / float64(len(b.weeks)),
			RSIVariance:     scoring.PopulationVariance(rsis),
		})
	}
	return books, regionals, skipped
}

// malformed names the defect in a score row, or returns empty for a clean one
func malformed(row domain.ScoreRow) string {
	switch {
	case row.ISBN == "":
		return "empty isbn"
	case row.Region == "":
		return "empty region"
	case row.ListSize < 1:
		return "list size under 1"
	case row.Rank < 1 || row.Rank > row.ListSize:
		return "rank outside list bounds"
	case math.IsNaN(row.Points) || row.Points < 0 || row.Points > scoring.MaxPoints:
		return "points outside score range"
	}
	return ""
}
