package service

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"bestsellers/internal/core/scoring"
	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/ingest/domain"
	"bestsellers/internal/services/ingest/repo"
	snaprepo "bestsellers/internal/services/snapshots/repo"
)

type fakeDB struct{ txErr error }

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (f fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(fakeDB{})
}

type fakeRepo struct {
	weeks map[string][]repo.ScoreInsert
}

func (f *fakeRepo) ReplaceWeek(_ context.Context, region string, _ time.Time, rows []repo.ScoreInsert) error {
	if f.weeks == nil {
		f.weeks = make(map[string][]repo.ScoreInsert)
	}
	f.weeks[region] = rows
	return nil
}

type fakeSnapRepo struct {
	recs map[string]snaprepo.Record
}

func (f *fakeSnapRepo) Get(_ context.Context, key string) (snaprepo.Record, error) {
	rec, ok := f.recs[key]
	if !ok {
		return snaprepo.Record{}, perr.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSnapRepo) Upsert(_ context.Context, rec snaprepo.Record) error {
	if f.recs == nil {
		f.recs = make(map[string]snaprepo.Record)
	}
	f.recs[rec.CacheKey] = rec
	return nil
}

type fakeCH struct {
	table string
	rows  [][]any
	err   error
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.err != nil {
		return f.err
	}
	f.table = table
	f.rows = rows
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                                { return nil }

func newTestSvc(t *testing.T, fr *fakeRepo, fs *fakeSnapRepo, ch *fakeCH) *Svc {
	t.Helper()
	svc := New(fakeDB{}, nil)
	svc.binder = repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr })
	svc.snapBinder = repokit.BindFunc[snaprepo.Repo](func(repokit.Queryer) snaprepo.Repo { return fs })
	if ch != nil {
		svc.ch = ch
	}
	return svc
}

func payload() domain.WeekPayload {
	return domain.WeekPayload{
		Week: "2026-08-26",
		Regions: []domain.RegionList{
			{Region: "north", Category: "fiction", Entries: []domain.ListEntry{
				{ISBN: "978-0306406157", Rank: 1},
				{ISBN: "9780000000002", Rank: 2},
				{ISBN: "9780000000003", Rank: 3},
			}},
			{Region: "south", Category: "fiction", Entries: []domain.ListEntry{
				{ISBN: "9780000000002", Rank: 1},
			}},
		},
	}
}

func TestIngestWeek_ScoresAndReplacesRows(t *testing.T) {
	fr := &fakeRepo{}
	fs := &fakeSnapRepo{}
	svc := newTestSvc(t, fr, fs, nil)

	out, err := svc.IngestWeek(context.Background(), payload())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Regions != 2 || out.Rows != 4 {
		t.Fatalf("regions=%d rows=%d, want 2 and 4", out.Regions, out.Rows)
	}

	north := fr.weeks["north"]
	if len(north) != 3 {
		t.Fatalf("north rows = %d, want 3", len(north))
	}
	if north[0].ISBN != "9780306406157" {
		t.Fatalf("isbn = %s, want normalized form", north[0].ISBN)
	}
	if north[0].Points != scoring.MaxPoints {
		t.Fatalf("rank one points = %f, want max", north[0].Points)
	}
	want, _ := scoring.Score(2, 3)
	if math.Abs(north[1].Points-want) > 1e-9 {
		t.Fatalf("rank two points = %f, want %f", north[1].Points, want)
	}

	// a one-entry list is its own chart; rank one still maxes out
	south := fr.weeks["south"]
	if len(south) != 1 || south[0].ListSize != 1 || south[0].Points != scoring.MaxPoints {
		t.Fatalf("south rows wrong: %+v", south)
	}
}

func TestIngestWeek_WritesSnapshotRecord(t *testing.T) {
	fr := &fakeRepo{}
	fs := &fakeSnapRepo{}
	svc := newTestSvc(t, fr, fs, nil)

	if _, err := svc.IngestWeek(context.Background(), payload()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	rec, ok := fs.recs["snapshot:2026-08-26:"]
	if !ok {
		t.Fatalf("snapshot record missing, have %v", fs.recs)
	}
	var stored domain.WeekPayload
	if err := json.Unmarshal(rec.Payload, &stored); err != nil {
		t.Fatalf("stored payload not json: %v", err)
	}
	if stored.Week != "2026-08-26" || len(stored.Regions) != 2 {
		t.Fatalf("stored payload wrong: %+v", stored)
	}
}

func TestIngestWeek_RejectsRankOutsideListBounds(t *testing.T) {
	p := payload()
	p.Regions[1].Entries[0].Rank = 2 // list of one
	svc := newTestSvc(t, &fakeRepo{}, &fakeSnapRepo{}, nil)

	_, err := svc.IngestWeek(context.Background(), p)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestIngestWeek_RejectsBadISBN(t *testing.T) {
	p := payload()
	p.Regions[0].Entries[2].ISBN = "garbage"
	fr := &fakeRepo{}
	svc := newTestSvc(t, fr, &fakeSnapRepo{}, nil)

	if _, err := svc.IngestWeek(context.Background(), p); err == nil {
		t.Fatal("expected rejection")
	}
	if len(fr.weeks) != 0 {
		t.Fatal("rejected payload must not write rows")
	}
}

func TestIngestWeek_RejectsDuplicateRegion(t *testing.T) {
	p := payload()
	p.Regions[1].Region = "north"
	svc := newTestSvc(t, &fakeRepo{}, &fakeSnapRepo{}, nil)

	if _, err := svc.IngestWeek(context.Background(), p); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestIngestWeek_ArchivesToColumnarStore(t *testing.T) {
	ch := &fakeCH{}
	svc := newTestSvc(t, &fakeRepo{}, &fakeSnapRepo{}, ch)

	out, err := svc.IngestWeek(context.Background(), payload())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !out.Archived {
		t.Fatal("expected archive to run")
	}
	if ch.table != "rank_observations" || len(ch.rows) != 4 {
		t.Fatalf("archive wrote table=%s rows=%d", ch.table, len(ch.rows))
	}
}

func TestIngestWeek_ArchiveFailureIsBestEffort(t *testing.T) {
	ch := &fakeCH{err: perr.Unavailablef("ch down")}
	svc := newTestSvc(t, &fakeRepo{}, &fakeSnapRepo{}, ch)

	out, err := svc.IngestWeek(context.Background(), payload())
	if err != nil {
		t.Fatalf("ingest should survive archive failure: %v", err)
	}
	if out.Archived {
		t.Fatal("archived flag should be false on failure")
	}
}
