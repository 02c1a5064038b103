// Package service implements the tiered metadata resolution cache
//
// Tier 1 is an in-process map with a short TTL. Tier 2 is the persistent
// book_metadata_cache table with a long TTL. Tier 3 is the external
// provider, reached in small throttled batches with per-identifier retry.
// A resolution never returns a partial map: identifiers that cannot be
// resolved come back as not-found sentinels
package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"bestsellers/internal/core/bookkey"
	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/logger"
	"bestsellers/internal/services/metadata/domain"
	"bestsellers/internal/services/metadata/repo"
)

// Service defines the metadata service contract
type Service interface {
	domain.ServicePort
}

// Config tunes the cache tiers and the provider dispatch
type Config struct {
	L1TTL       time.Duration // default 30m
	L2TTL       time.Duration // default 30 days
	SentinelTTL time.Duration // default 24h, applies to not-found rows

	BatchSize     int           // default 5, clamped to [2, 10]
	ThrottleDelay time.Duration // min gap between provider batches, default 1s
	MaxRetries    int           // per identifier on transient failure, default 3
	RetryBase     time.Duration // first retry delay, default 250ms
}

func (c Config) withDefaults() Config {
	if c.L1TTL <= 0 {
		c.L1TTL = 30 * time.Minute
	}
	if c.L2TTL <= 0 {
		c.L2TTL = 30 * 24 * time.Hour
	}
	if c.SentinelTTL <= 0 {
		c.SentinelTTL = 24 * time.Hour
	}
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if c.BatchSize < 2 {
		c.BatchSize = 2
	}
	if c.BatchSize > 10 {
		c.BatchSize = 10
	}
	if c.ThrottleDelay <= 0 {
		c.ThrottleDelay = time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 250 * time.Millisecond
	}
	return c
}

type l1Entry struct {
	meta domain.BookMetadata
	exp  time.Time
}

// Svc implements the metadata service
type Svc struct {
	cfg    Config
	lookup domain.LookupPort
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	log    logger.Logger

	mu sync.Mutex
	l1 map[string]l1Entry

	flight  singleflight.Group
	limiter *rate.Limiter

	now func() time.Time
}

// New constructs a metadata service
// db may be nil, in which case the persistent tier is skipped entirely
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], lookup domain.LookupPort, cfg Config) *Svc {
	if lookup == nil {
		panic("metadata.Service requires a non nil LookupPort")
	}
	cfg = cfg.withDefaults()
	return &Svc{
		cfg:     cfg,
		lookup:  lookup,
		binder:  binder,
		db:      db,
		log:     *logger.Named("metadata"),
		l1:      make(map[string]l1Entry),
		limiter: rate.NewLimiter(rate.Every(cfg.ThrottleDelay), 1),
		now:     time.Now,
	}
}

// Resolve returns metadata for every requested ISBN
// The result map is total over the (normalized) input set
func (s *Svc) Resolve(ctx context.Context, in domain.ResolveInput) (domain.ResolveOutput, error) {
	if len(in.ISBNs) == 0 {
		return domain.ResolveOutput{}, perr.InvalidArgf("at least one isbn is required")
	}

	// normalize and dedupe up front; invalid identifiers are caller errors
	want := make([]string, 0, len(in.ISBNs))
	seen := make(map[string]struct{}, len(in.ISBNs))
	for _, raw := range in.ISBNs {
		isbn, err := bookkey.NormalizeISBN(raw)
		if err != nil {
			return domain.ResolveOutput{}, err
		}
		if _, dup := seen[isbn]; dup {
			continue
		}
		seen[isbn] = struct{}{}
		want = append(want, isbn)
	}

	out := make(map[string]domain.BookMetadata, len(want))

	misses := s.readL1(want, out)
	misses = s.readL2(ctx, misses, out)

	if len(misses) > 0 {
		if err := s.fetchBatches(ctx, misses, out); err != nil {
			return domain.ResolveOutput{}, err
		}
	}

	return domain.ResolveOutput{Books: out}, nil
}

// readL1 fills out from the in-process tier and returns the remaining misses
func (s *Svc) readL1(want []string, out map[string]domain.BookMetadata) []string {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var misses []string
	for _, isbn := range want {
		if e, ok := s.l1[isbn]; ok && now.Before(e.exp) {
			out[isbn] = e.meta
			continue
		}
		misses = append(misses, isbn)
	}
	return misses
}

// readL2 consults the persistent tier; read errors degrade to provider fetch
func (s *Svc) readL2(ctx context.Context, misses []string, out map[string]domain.BookMetadata) []string {
	if len(misses) == 0 || s.db == nil {
		return misses
	}
	recs, err := s.binder.Bind(s.db).GetMany(ctx, misses)
	if err != nil {
		s.log.Warn().Err(err).Int("isbns", len(misses)).Msg("persistent cache read failed, degrading to provider")
		return misses
	}
	now := s.now()
	found := make(map[string]domain.BookMetadata, len(recs))
	for _, rec := range recs {
		ttl := s.cfg.L2TTL
		if rec.NotFound {
			ttl = s.cfg.SentinelTTL
		}
		if now.Sub(rec.FetchedAt) >= ttl {
			continue // expired, refetch
		}
		found[rec.ISBN] = domain.BookMetadata{
			ISBN:      rec.ISBN,
			Title:     rec.Title,
			Author:    rec.Author,
			Category:  rec.Category,
			CoverURL:  rec.CoverURL,
			Published: rec.Published,
			NotFound:  rec.NotFound,
			FetchedAt: rec.FetchedAt,
		}
	}
	var rest []string
	for _, isbn := range misses {
		if meta, ok := found[isbn]; ok {
			out[isbn] = meta
			s.putL1(meta)
			continue
		}
		rest = append(rest, isbn)
	}
	return rest
}

// fetchBatches resolves the remaining identifiers from the provider in
// throttled chunks, writing results through both cache tiers
func (s *Svc) fetchBatches(ctx context.Context, misses []string, out map[string]domain.BookMetadata) error {
	for start := 0; start < len(misses); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var (
			bmu      sync.Mutex
			results  = make([]domain.BookMetadata, 0, len(batch))
			firstErr error
		)
		p := pool.New().WithMaxGoroutines(len(batch))
		for _, isbn := range batch {
			isbn := isbn
			p.Go(func() {
				meta, err := s.fetchOne(ctx, isbn)
				bmu.Lock()
				defer bmu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				results = append(results, meta)
			})
		}
		p.Wait()
		if firstErr != nil {
			return firstErr
		}

		s.writeThrough(ctx, results)
		for _, meta := range results {
			out[meta.ISBN] = meta
		}
	}
	return nil
}

// fetchOne performs the per-identifier retry dance. Only transient failures
// retry; permanent failures and retry exhaustion settle on a sentinel.
// Concurrent requests for the same identifier share one flight
func (s *Svc) fetchOne(ctx context.Context, isbn string) (domain.BookMetadata, error) {
	v, err, _ := s.flight.Do(isbn, func() (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = s.cfg.RetryBase

		var lastErr error
		for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
			if attempt > 0 {
				sleep := bo.NextBackOff()
				if sleep == backoff.Stop {
					break
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(sleep):
				}
			}

			meta, err := s.lookup.Lookup(ctx, isbn)
			if err == nil {
				meta.ISBN = isbn
				meta.FetchedAt = s.now()
				return meta, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if perr.IsPermanentLookup(err) {
				s.log.Debug().Err(err).Str("isbn", isbn).Msg("provider has no record, writing sentinel")
				return s.sentinel(isbn), nil
			}
			lastErr = err
		}
		s.log.Warn().Err(lastErr).Str("isbn", isbn).
			Int("retries", s.cfg.MaxRetries).
			Msg("lookup retries exhausted, writing sentinel")
		return s.sentinel(isbn), nil
	})
	if err != nil {
		return domain.BookMetadata{}, err
	}
	return v.(domain.BookMetadata), nil
}

func (s *Svc) sentinel(isbn string) domain.BookMetadata {
	return domain.BookMetadata{ISBN: isbn, NotFound: true, FetchedAt: s.now()}
}

// writeThrough populates both cache tiers; persistent tier failures only warn
func (s *Svc) writeThrough(ctx context.Context, metas []domain.BookMetadata) {
	for _, meta := range metas {
		s.putL1(meta)
	}
	if s.db == nil || len(metas) == 0 {
		return
	}
	recs := make([]repo.Record, 0, len(metas))
	for _, m := range metas {
		recs = append(recs, repo.Record{
			ISBN:      m.ISBN,
			Title:     m.Title,
			Author:    m.Author,
			Category:  m.Category,
			CoverURL:  m.CoverURL,
			Published: m.Published,
			NotFound:  m.NotFound,
			FetchedAt: m.FetchedAt,
		})
	}
	if err := s.binder.Bind(s.db).UpsertMany(ctx, recs); err != nil {
		s.log.Warn().Err(err).Int("records", len(recs)).Msg("persistent cache write failed")
	}
}

func (s *Svc) putL1(meta domain.BookMetadata) {
	ttl := s.cfg.L1TTL
	if meta.NotFound && s.cfg.SentinelTTL < ttl {
		ttl = s.cfg.SentinelTTL
	}
	s.mu.Lock()
	s.l1[meta.ISBN] = l1Entry{meta: meta, exp: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Sweep evicts expired entries from both tiers
func (s *Svc) Sweep(ctx context.Context) (domain.SweepOutput, error) {
	now := s.now()
	s.mu.Lock()
	evicted := 0
	for isbn, e := range s.l1 {
		if !now.Before(e.exp) {
			delete(s.l1, isbn)
			evicted++
		}
	}
	s.mu.Unlock()

	var deleted int64
	if s.db != nil {
		n, err := s.binder.Bind(s.db).DeleteOlderThan(ctx, s.cfg.L2TTL, s.cfg.SentinelTTL)
		if err != nil {
			return domain.SweepOutput{L1Evicted: evicted}, err
		}
		deleted = n
	}
	s.log.Debug().Int("l1_evicted", evicted).Int64("l2_deleted", deleted).Msg("cache sweep done")
	return domain.SweepOutput{L1Evicted: evicted, L2Deleted: deleted}, nil
}
