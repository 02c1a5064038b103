package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"bestsellers/internal/core/scoring"
	"bestsellers/internal/modkit/repokit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/testkit"
	"bestsellers/internal/services/aggregate/domain"
	"bestsellers/internal/services/aggregate/repo"
)

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error   { return fn(fakeDB{}) }

type fakeRepo struct {
	scores []domain.ScoreRow
	titles map[string]repo.TitleAuthor

	books     []domain.BookMetrics
	regionals []domain.RegionalMetrics
	rankings  []domain.RankingEntry

	replaceErr error
	runStatus  string
}

func (f *fakeRepo) ReadYear(context.Context, int) ([]domain.ScoreRow, error) {
	return f.scores, nil
}

func (f *fakeRepo) ReplaceBookMetrics(_ context.Context, _ int, rows []domain.BookMetrics) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.books = rows
	return nil
}

func (f *fakeRepo) ReplaceRegionalMetrics(_ context.Context, _ int, rows []domain.RegionalMetrics) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.regionals = rows
	return nil
}

func (f *fakeRepo) ReplaceRankings(_ context.Context, _ int, rows []domain.RankingEntry) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.rankings = rows
	return nil
}

func (f *fakeRepo) TitlesFor(context.Context, []string) (map[string]repo.TitleAuthor, error) {
	if f.titles == nil {
		return map[string]repo.TitleAuthor{}, nil
	}
	return f.titles, nil
}

func (f *fakeRepo) BeginRun(context.Context, string, int, time.Time) error { return nil }

func (f *fakeRepo) FinishRun(_ context.Context, _, status string, _, _ int, _ string) error {
	f.runStatus = status
	return nil
}

func newTestSvc(t *testing.T, fr *fakeRepo) *Svc {
	t.Helper()
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr })
	return New(fakeDB{}, binder, nil, Config{})
}

func week(n int) time.Time {
	return time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

func obs(t *testing.T, isbn, region string, wk, rank, listSize int) domain.ScoreRow {
	t.Helper()
	pts, err := scoring.Score(rank, listSize)
	if err != nil {
		t.Fatalf("score fixture: %v", err)
	}
	return domain.ScoreRow{
		ISBN: isbn, Region: region, WeekDate: week(wk),
		Rank: rank, Category: "fiction", ListSize: listSize, Points: pts,
	}
}

func TestAggregate_FoldsBookAndRegionalMetrics(t *testing.T) {
	fr := &fakeRepo{scores: []domain.ScoreRow{
		obs(t, "9780000000001", "north", 0, 1, 10),
		obs(t, "9780000000001", "north", 1, 3, 10),
		obs(t, "9780000000001", "south", 0, 5, 10),
	}}
	svc := newTestSvc(t, fr)

	out, err := svc.Aggregate(context.Background(), domain.RunInput{Year: 2026})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.Books != 1 || out.Regions != 2 {
		t.Fatalf("books=%d regions=%d, want 1 and 2", out.Books, out.Regions)
	}

	b := fr.books[0]
	if b.WeeksOnChart != 2 {
		t.Fatalf("weeks on chart = %d, want 2 distinct weeks", b.WeeksOnChart)
	}
	if b.RegionsAppeared != 2 {
		t.Fatalf("regions appeared = %d, want 2", b.RegionsAppeared)
	}
	wantTotal := fr.scores[0].Points + fr.scores[1].Points + fr.scores[2].Points
	testkit.AlmostEqual(t, b.TotalScore, wantTotal, 1e-9)
	testkit.AlmostEqual(t, b.AvgScorePerWeek, wantTotal/2, 1e-9)

	north := fr.regionals[0]
	if north.Region != "north" || north.BestRank != 1 || north.WeeksOnChart != 2 {
		t.Fatalf("north aggregate wrong: %+v", north)
	}
	testkit.AlmostEqual(t, north.AvgRank, 2, 1e-9)
}

func TestAggregate_RSISumsToOne(t *testing.T) {
	fr := &fakeRepo{scores: []domain.ScoreRow{
		obs(t, "9780000000001", "north", 0, 1, 10),
		obs(t, "9780000000001", "south", 0, 7, 10),
		obs(t, "9780000000001", "east", 1, 2, 15),
		obs(t, "9780000000002", "west", 0, 4, 10),
	}}
	svc := newTestSvc(t, fr)

	if _, err := svc.Aggregate(context.Background(), domain.RunInput{Year: 2026}); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	sums := make(map[string]float64)
	for _, rm := range fr.regionals {
		sums[rm.ISBN] += rm.RSI
	}
	for _, sum := range sums {
		testkit.AlmostEqual(t, sum, 1, 1e-9)
	}
}

func TestAggregate_SingleRegionVarianceIsZero(t *testing.T) {
	fr := &fakeRepo{scores: []domain.ScoreRow{
		obs(t, "9780000000003", "north", 0, 2, 10),
		obs(t, "9780000000003", "north", 1, 4, 10),
	}}
	svc := newTestSvc(t, fr)

	if _, err := svc.Aggregate(context.Background(), domain.RunInput{Year: 2026}); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if v := fr.books[0].RSIVariance; v != 0 {
		t.Fatalf("single region variance = %f, want 0", v)
	}
}

func TestAggregate_SkipsMalformedRowsWithoutAborting(t *testing.T) {
	bad := obs(t, "9780000000004", "north", 0, 1, 10)
	bad.Rank = 11 // outside list bounds
	fr := &fakeRepo{scores: []domain.ScoreRow{
		bad,
		obs(t, "9780000000005", "north", 0, 1, 10),
		{ISBN: "9780000000006", Region: "south", WeekDate: week(0), Rank: 1, ListSize: 0, Points: 50},
	}}
	svc := newTestSvc(t, fr)

	out, err := svc.Aggregate(context.Background(), domain.RunInput{Year: 2026})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", out.Skipped)
	}
	if out.Books != 1 {
		t.Fatalf("books = %d, only the clean row should survive", out.Books)
	}
}

func TestAggregate_IsIdempotent(t *testing.T) {
	rows := []domain.ScoreRow{
		obs(t, "9780000000001", "north", 0, 1, 10),
		obs(t, "9780000000001", "south", 1, 2, 12),
		obs(t, "9780000000002", "north", 0, 9, 10),
	}
	fr1 := &fakeRepo{scores: rows}
	fr2 := &fakeRepo{scores: rows}

	if _, err := newTestSvc(t, fr1).Aggregate(context.Background(), domain.RunInput{Year: 2026}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := newTestSvc(t, fr2).Aggregate(context.Background(), domain.RunInput{Year: 2026}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(fr1.books, fr2.books) {
		t.Fatal("book metrics differ across identical runs")
	}
	if !reflect.DeepEqual(fr1.regionals, fr2.regionals) {
		t.Fatal("regional metrics differ across identical runs")
	}
	if !reflect.DeepEqual(fr1.rankings, fr2.rankings) {
		t.Fatal("rankings differ across identical runs")
	}
}

func TestAggregate_StoreFailureAbortsRun(t *testing.T) {
	fr := &fakeRepo{
		scores:     []domain.ScoreRow{obs(t, "9780000000001", "north", 0, 1, 10)},
		replaceErr: perr.DBf("disk full"),
	}
	svc := newTestSvc(t, fr)

	_, err := svc.Aggregate(context.Background(), domain.RunInput{Year: 2026})
	if err == nil {
		t.Fatal("expected the run to abort")
	}
	if fr.runStatus != "error" {
		t.Fatalf("run status = %q, want error", fr.runStatus)
	}
}

func TestAggregate_YearDefaultsToCurrent(t *testing.T) {
	fr := &fakeRepo{}
	svc := newTestSvc(t, fr)
	svc.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }

	out, err := svc.Aggregate(context.Background(), domain.RunInput{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.Year != 2026 {
		t.Fatalf("year = %d, want 2026", out.Year)
	}
}
