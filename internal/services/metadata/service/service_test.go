package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/metadata/domain"
	"bestsellers/internal/services/metadata/repo"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error   { return fn(fakeDB{}) }

type fakeRepo struct {
	mu      sync.Mutex
	rows    map[string]repo.Record
	getErr  error
	putErr  error
	deleted int64
	gets    int
	puts    int
}

func (f *fakeRepo) GetMany(_ context.Context, isbns []string) ([]repo.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []repo.Record
	for _, isbn := range isbns {
		if rec, ok := f.rows[isbn]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertMany(_ context.Context, recs []repo.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	if f.rows == nil {
		f.rows = make(map[string]repo.Record)
	}
	for _, rec := range recs {
		f.rows[rec.ISBN] = rec
	}
	return nil
}

func (f *fakeRepo) DeleteOlderThan(context.Context, time.Duration, time.Duration) (int64, error) {
	return f.deleted, nil
}

type fakeLookup struct {
	mu       sync.Mutex
	calls    map[string]int
	inflight atomic.Int64
	maxSeen  atomic.Int64
	fn       func(isbn string, attempt int) (domain.BookMetadata, error)
}

func (f *fakeLookup) Lookup(_ context.Context, isbn string) (domain.BookMetadata, error) {
	cur := f.inflight.Add(1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inflight.Add(-1)

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[isbn]++
	attempt := f.calls[isbn]
	f.mu.Unlock()
	return f.fn(isbn, attempt)
}

func (f *fakeLookup) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func okLookup(isbn string, _ int) (domain.BookMetadata, error) {
	return domain.BookMetadata{ISBN: isbn, Title: "Title " + isbn, Author: "Author"}, nil
}

func testCfg() Config {
	return Config{
		ThrottleDelay: time.Millisecond,
		RetryBase:     time.Millisecond,
	}
}

func newTestSvc(t *testing.T, fr *fakeRepo, fl *fakeLookup, cfg Config) *Svc {
	t.Helper()
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr })
	return New(fakeDB{}, binder, fl, cfg)
}

func isbn13(i int) string { return fmt.Sprintf("978%010d", i) }

func TestResolve_SecondCallHitsL1(t *testing.T) {
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, &fakeRepo{}, fl, testCfg())

	in := domain.ResolveInput{ISBNs: []string{isbn13(1), isbn13(2)}}
	if _, err := svc.Resolve(context.Background(), in); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if got := fl.total(); got != 2 {
		t.Fatalf("first resolve lookups = %d, want 2", got)
	}

	out, err := svc.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got := fl.total(); got != 2 {
		t.Fatalf("second resolve hit provider, lookups = %d", got)
	}
	if len(out.Books) != 2 {
		t.Fatalf("books = %d, want 2", len(out.Books))
	}
}

func TestResolve_DeduplicatesEquivalentForms(t *testing.T) {
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, &fakeRepo{}, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{
		ISBNs: []string{"978-0306406157", "9780306406157", "978 0306406157"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out.Books) != 1 {
		t.Fatalf("books = %d, want 1", len(out.Books))
	}
	if got := fl.total(); got != 1 {
		t.Fatalf("lookups = %d, want 1", got)
	}
}

func TestResolve_RejectsInvalidISBN(t *testing.T) {
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, &fakeRepo{}, fl, testCfg())

	_, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{"not-an-isbn"}})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
	if fl.total() != 0 {
		t.Fatal("provider reached for invalid input")
	}
}

func TestResolve_PermanentFailureYieldsSentinel(t *testing.T) {
	fl := &fakeLookup{fn: func(isbn string, _ int) (domain.BookMetadata, error) {
		return domain.BookMetadata{}, perr.LookupPermanentf("no record for %s", isbn)
	}}
	svc := newTestSvc(t, &fakeRepo{}, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(7)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	meta, ok := out.Books[isbn13(7)]
	if !ok {
		t.Fatal("result map is missing the failed identifier")
	}
	if !meta.NotFound {
		t.Fatal("expected a not-found sentinel")
	}
	if got := fl.total(); got != 1 {
		t.Fatalf("permanent failure retried, lookups = %d", got)
	}
}

func TestResolve_TransientRetriesThenSucceeds(t *testing.T) {
	fl := &fakeLookup{fn: func(isbn string, attempt int) (domain.BookMetadata, error) {
		if attempt < 3 {
			return domain.BookMetadata{}, perr.LookupTransientf("provider flake %d", attempt)
		}
		return okLookup(isbn, attempt)
	}}
	svc := newTestSvc(t, &fakeRepo{}, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(9)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	meta := out.Books[isbn13(9)]
	if meta.NotFound {
		t.Fatal("got sentinel, want recovered metadata")
	}
	if got := fl.total(); got != 3 {
		t.Fatalf("lookups = %d, want 3", got)
	}
}

func TestResolve_RetriesExhaustedYieldsSentinel(t *testing.T) {
	fl := &fakeLookup{fn: func(string, int) (domain.BookMetadata, error) {
		return domain.BookMetadata{}, perr.LookupTransientf("provider down")
	}}
	cfg := testCfg()
	cfg.MaxRetries = 2
	svc := newTestSvc(t, &fakeRepo{}, fl, cfg)

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(4)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.Books[isbn13(4)].NotFound {
		t.Fatal("expected sentinel after exhausted retries")
	}
	if got := fl.total(); got != 3 {
		t.Fatalf("lookups = %d, want initial try plus 2 retries", got)
	}
}

func TestResolve_FreshL2RecordSkipsProvider(t *testing.T) {
	fr := &fakeRepo{rows: map[string]repo.Record{
		isbn13(5): {ISBN: isbn13(5), Title: "Cached", FetchedAt: time.Now().Add(-time.Hour)},
	}}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(5)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Books[isbn13(5)].Title != "Cached" {
		t.Fatalf("title = %q, want persistent tier hit", out.Books[isbn13(5)].Title)
	}
	if fl.total() != 0 {
		t.Fatal("provider reached despite fresh persistent record")
	}
}

func TestResolve_ExpiredL2RecordRefetches(t *testing.T) {
	fr := &fakeRepo{rows: map[string]repo.Record{
		isbn13(6): {ISBN: isbn13(6), Title: "Stale", FetchedAt: time.Now().Add(-31 * 24 * time.Hour)},
	}}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(6)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fl.total() != 1 {
		t.Fatal("expired record should have been refetched")
	}
	if out.Books[isbn13(6)].Title != "Title "+isbn13(6) {
		t.Fatalf("title = %q, want refetched metadata", out.Books[isbn13(6)].Title)
	}
}

func TestResolve_ExpiredSentinelRefetches(t *testing.T) {
	fr := &fakeRepo{rows: map[string]repo.Record{
		isbn13(8): {ISBN: isbn13(8), NotFound: true, FetchedAt: time.Now().Add(-25 * time.Hour)},
	}}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(8)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if fl.total() != 1 {
		t.Fatal("expired sentinel should have been refetched")
	}
	if out.Books[isbn13(8)].NotFound {
		t.Fatal("sentinel should have been replaced by real metadata")
	}
}

func TestResolve_L2ReadErrorDegradesToProvider(t *testing.T) {
	fr := &fakeRepo{getErr: perr.DBf("cache table on fire")}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(3)}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out.Books) != 1 || fl.total() != 1 {
		t.Fatalf("degraded resolve books=%d lookups=%d", len(out.Books), fl.total())
	}
}

func TestResolve_ConcurrencyBoundedByBatchSize(t *testing.T) {
	fl := &fakeLookup{fn: func(isbn string, attempt int) (domain.BookMetadata, error) {
		time.Sleep(2 * time.Millisecond)
		return okLookup(isbn, attempt)
	}}
	cfg := testCfg()
	cfg.BatchSize = 3
	svc := newTestSvc(t, &fakeRepo{}, fl, cfg)

	isbns := make([]string, 0, 11)
	for i := 100; i < 111; i++ {
		isbns = append(isbns, isbn13(i))
	}
	out, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: isbns})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out.Books) != len(isbns) {
		t.Fatalf("books = %d, want %d", len(out.Books), len(isbns))
	}
	if max := fl.maxSeen.Load(); max > int64(cfg.BatchSize) {
		t.Fatalf("max in-flight lookups = %d, batch size %d", max, cfg.BatchSize)
	}
}

func TestResolve_WriteThroughPopulatesPersistentTier(t *testing.T) {
	fr := &fakeRepo{}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(2)}}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := fr.rows[isbn13(2)]; !ok {
		t.Fatal("provider result not written through to persistent tier")
	}
}

func TestSweep_EvictsExpiredL1(t *testing.T) {
	fr := &fakeRepo{deleted: 4}
	fl := &fakeLookup{fn: okLookup}
	svc := newTestSvc(t, fr, fl, testCfg())

	if _, err := svc.Resolve(context.Background(), domain.ResolveInput{ISBNs: []string{isbn13(1)}}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	base := time.Now()
	svc.now = func() time.Time { return base.Add(time.Hour) }
	out, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if out.L1Evicted != 1 {
		t.Fatalf("l1 evicted = %d, want 1", out.L1Evicted)
	}
	if out.L2Deleted != 4 {
		t.Fatalf("l2 deleted = %d, want 4", out.L2Deleted)
	}
}
