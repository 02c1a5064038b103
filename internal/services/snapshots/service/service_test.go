package service

import (
	"context"
	"testing"
	"time"

	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/testkit"
	"bestsellers/internal/services/snapshots/domain"
	"bestsellers/internal/services/snapshots/repo"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error   { return fn(fakeDB{}) }

type fakeRepo struct {
	rows    map[string]repo.Record
	lastKey string
}

func (f *fakeRepo) Get(_ context.Context, cacheKey string) (repo.Record, error) {
	f.lastKey = cacheKey
	rec, ok := f.rows[cacheKey]
	if !ok {
		return repo.Record{}, perr.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) Upsert(_ context.Context, rec repo.Record) error {
	if f.rows == nil {
		f.rows = make(map[string]repo.Record)
	}
	f.rows[rec.CacheKey] = rec
	return nil
}

var testNow = time.Date(2026, time.August, 28, 15, 0, 0, 0, time.UTC) // a Friday

func TestConfig_DefaultsApplyIndependently(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       Config
		wantDay  time.Weekday
		wantHour int
	}{
		{"zero config", Config{}, time.Wednesday, 8},
		{"hour only", Config{IngestHourUTC: 9}, time.Wednesday, 9},
		{"weekday only", Config{ListWeekday: "sunday"}, time.Sunday, 8},
		{"out of range hour", Config{IngestHourUTC: 25}, time.Wednesday, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.withDefaults()
			if got.weekday != tc.wantDay {
				t.Fatalf("weekday = %s, want %s", got.weekday, tc.wantDay)
			}
			if got.IngestHourUTC != tc.wantHour {
				t.Fatalf("ingest hour = %d, want %d", got.IngestHourUTC, tc.wantHour)
			}
		})
	}
}

func TestNew_RequiresTxRunner(t *testing.T) {
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return &fakeRepo{} })
	testkit.MustPanic(t, func() { New(nil, binder, Config{}) })
}

func newTestSvc(t *testing.T, fr *fakeRepo) *Svc {
	t.Helper()
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr })
	svc := New(fakeDB{}, binder, Config{ListWeekday: "wednesday", IngestHourUTC: 8})
	svc.now = func() time.Time { return testNow }
	return svc
}

func seed(fr *fakeRepo, week time.Time, fetchedAgo time.Duration) {
	fr.Upsert(context.Background(), repo.Record{
		CacheKey:      domain.CacheKey(week, time.Time{}),
		WeekDate:      week,
		Payload:       []byte(`{"entries":[]}`),
		LastFetchedAt: testNow.Add(-fetchedAgo),
	})
}

func TestGet_FreshnessWindows(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		age  time.Duration
		want domain.Status
	}{
		{"two hours is fresh", 2 * time.Hour, domain.StatusFresh},
		{"ten hours is stale", 10 * time.Hour, domain.StatusStale},
		{"thirty hours is unavailable", 30 * time.Hour, domain.StatusUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fr := &fakeRepo{}
			seed(fr, week, tc.age)
			svc := newTestSvc(t, fr)

			out, err := svc.Get(context.Background(), domain.GetInput{Week: week})
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if out.Status != tc.want {
				t.Fatalf("status = %s, want %s", out.Status, tc.want)
			}
			if len(out.Payload) == 0 {
				t.Fatal("payload missing, even unavailable serves best effort")
			}
		})
	}
}

func TestGet_ETagMatchReturnsNotModified(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	seed(fr, week, time.Hour)
	svc := newTestSvc(t, fr)

	first, err := svc.Get(context.Background(), domain.GetInput{Week: week})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := svc.Get(context.Background(), domain.GetInput{Week: week, IfNoneMatch: first.ETag})
	if err != nil {
		t.Fatalf("conditional get: %v", err)
	}
	if !second.NotModified {
		t.Fatal("matching validator should report not modified")
	}
	if second.Payload != nil {
		t.Fatal("not modified must not carry a payload")
	}
}

func TestGet_MissingSnapshotIsNotFound(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	svc := newTestSvc(t, &fakeRepo{})

	_, err := svc.Get(context.Background(), domain.GetInput{Week: week})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestGet_DefaultsToMostRecentListWeekday(t *testing.T) {
	// testNow is Friday 2026-08-28, the preceding Wednesday is the 26th
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	seed(fr, week, time.Hour)
	svc := newTestSvc(t, fr)

	out, err := svc.Get(context.Background(), domain.GetInput{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.CurrentWeek != "2026-08-26" {
		t.Fatalf("current week = %s, want 2026-08-26", out.CurrentWeek)
	}
}

func TestGet_NextRefreshIsWeekPlusSevenAtIngestHour(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	seed(fr, week, time.Hour)
	svc := newTestSvc(t, fr)

	out, err := svc.Get(context.Background(), domain.GetInput{Week: week})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := time.Date(2026, time.September, 2, 8, 0, 0, 0, time.UTC)
	if !out.NextRefresh.Equal(want) {
		t.Fatalf("next refresh = %s, want %s", out.NextRefresh, want)
	}
}

func TestGet_ComparisonWeekChangesKeyAndETag(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	cmp := time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	seed(fr, week, time.Hour)
	svc := newTestSvc(t, fr)

	plain, err := svc.Get(context.Background(), domain.GetInput{Week: week})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	paired, err := svc.Get(context.Background(), domain.GetInput{Week: week, ComparisonWeek: cmp})
	if err != nil {
		t.Fatalf("comparison get: %v", err)
	}
	if paired.ETag == plain.ETag {
		t.Fatal("comparison pair must produce a distinct validator")
	}
	if got := domain.ETagFor(week, cmp); paired.ETag != got {
		t.Fatalf("etag = %s, want %s", paired.ETag, got)
	}
}

func TestGet_ComparisonFallsBackToBaseWeekRecord(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	cmp := time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC)
	fr := &fakeRepo{}
	seed(fr, week, time.Hour)
	svc := newTestSvc(t, fr)

	out, err := svc.Get(context.Background(), domain.GetInput{Week: week, ComparisonWeek: cmp})
	if err != nil {
		t.Fatalf("comparison get: %v", err)
	}
	if out.Status != domain.StatusFresh {
		t.Fatalf("status = %s, want %s", out.Status, domain.StatusFresh)
	}
	if len(out.Payload) == 0 {
		t.Fatal("fallback must carry the base week payload")
	}
	if out.ComparisonWeek != "2026-08-19" {
		t.Fatalf("comparison week = %s, want 2026-08-19", out.ComparisonWeek)
	}
	if fr.lastKey != domain.CacheKey(week, time.Time{}) {
		t.Fatalf("final lookup key = %s, want the base week key", fr.lastKey)
	}
}

func TestGet_MissingBaseWeekStillNotFoundForComparison(t *testing.T) {
	week := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	cmp := time.Date(2026, time.August, 19, 0, 0, 0, 0, time.UTC)
	svc := newTestSvc(t, &fakeRepo{})

	_, err := svc.Get(context.Background(), domain.GetInput{Week: week, ComparisonWeek: cmp})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
