//go:build integration_pg
// +build integration_pg

package store

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"bestsellers/internal/platform/logger"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func newTestStoreLogger() logger.Logger {
	return zerolog.New(io.Discard)
}

func openTestAdapter(t *testing.T, ctx context.Context, dsn string) *pgAdapter {
	t.Helper()
	s := &Store{Log: newTestStoreLogger()}
	cfg := Config{
		PG: PGConfig{
			URL:         dsn,
			MaxConns:    2,
			SlowQueryMs: 0,
			LogSQL:      true, // hit tracer wiring path
		},
	}
	txr, err := openPG(ctx, cfg, s)
	if err != nil {
		t.Fatalf("openPG failed: %v", err)
	}
	a, ok := txr.(*pgAdapter)
	if !ok {
		t.Fatalf("openPG did not return *pgAdapter, got %T", txr)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLAdapter_Integration_WeeklyScoresRoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	a := openTestAdapter(t, ctx, dsn)

	if _, err := a.Exec(ctx, `
		CREATE TEMP TABLE weekly_scores (
			isbn      TEXT NOT NULL,
			region    TEXT NOT NULL,
			week_date DATE NOT NULL,
			rank      INT NOT NULL,
			list_size INT NOT NULL,
			points    DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (isbn, region, week_date)
		)
	`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}

	if _, err := a.Exec(ctx, `
		INSERT INTO weekly_scores (isbn, region, week_date, rank, list_size, points)
		VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12)
	`,
		"9780000000001", "north", "2026-08-26", 1, 10, 100.0,
		"9780000000002", "north", "2026-08-26", 2, 10, 71.1,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var topISBN string
	if err := a.QueryRow(ctx,
		`SELECT isbn FROM weekly_scores WHERE region=$1 ORDER BY rank LIMIT 1`, "north",
	).Scan(&topISBN); err != nil {
		t.Fatalf("queryrow scan: %v", err)
	}
	if topISBN != "9780000000001" {
		t.Fatalf("unexpected top isbn: %q", topISBN)
	}

	rs, err := a.Query(ctx, `SELECT isbn, points FROM weekly_scores ORDER BY rank`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()

	cols := rs.Columns()
	if len(cols) != 2 || cols[0] != "isbn" || cols[1] != "points" {
		t.Fatalf("columns mismatch: %#v", cols)
	}

	var points []float64
	for rs.Next() {
		var isbn string
		var p float64
		if err := rs.Scan(&isbn, &p); err != nil {
			t.Fatalf("rows scan: %v", err)
		}
		points = append(points, p)
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("rows err: %v", err)
	}
	if len(points) != 2 || points[0] != 100.0 {
		t.Fatalf("rows mismatch points=%v", points)
	}

	// Close is idempotent
	if err := a.Close(); err != nil {
		t.Fatalf("adapter close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("adapter close second: %v", err)
	}
}

func TestSQLAdapter_Integration_ReplaceWeekIsTransactional(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	a := openTestAdapter(t, ctx, dsn)

	if _, err := a.Exec(ctx, `
		CREATE TEMP TABLE weekly_scores (
			isbn      TEXT NOT NULL,
			region    TEXT NOT NULL,
			week_date DATE NOT NULL,
			points    DOUBLE PRECISION NOT NULL
		)
	`); err != nil {
		t.Fatalf("create temp table: %v", err)
	}
	if _, err := a.Exec(ctx,
		`INSERT INTO weekly_scores VALUES ('9780000000001', 'north', '2026-08-19', 50)`,
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// commit path replaces the region's week
	if err := a.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `DELETE FROM weekly_scores WHERE region='north'`); err != nil {
			return err
		}
		_, err := q.Exec(ctx,
			`INSERT INTO weekly_scores VALUES ('9780000000002', 'north', '2026-08-26', 90)`)
		return err
	}); err != nil {
		t.Fatalf("tx commit: %v", err)
	}

	var count int
	if err := a.QueryRow(ctx,
		`SELECT COUNT(*) FROM weekly_scores WHERE isbn='9780000000002'`,
	).Scan(&count); err != nil {
		t.Fatalf("count committed: %v", err)
	}
	if count != 1 {
		t.Fatalf("commit failed count=%d want=1", count)
	}

	// rollback path leaves the table untouched
	wantErr := fmt.Errorf("boom")
	if err := a.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `DELETE FROM weekly_scores`); err != nil {
			return err
		}
		return wantErr
	}); err == nil {
		t.Fatal("tx should have propagated the error")
	}

	if err := a.QueryRow(ctx, `SELECT COUNT(*) FROM weekly_scores`).Scan(&count); err != nil {
		t.Fatalf("count after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("rollback failed count=%d want=1", count)
	}
}
