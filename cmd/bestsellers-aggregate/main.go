package main

import (
	"context"
	"flag"

	"bestsellers/internal/modkit"
	"bestsellers/internal/platform/config"
	"bestsellers/internal/platform/logger"
	"bestsellers/internal/platform/store"

	aggdom "bestsellers/internal/services/aggregate/domain"
	"bestsellers/internal/services/aggregate/guardrails"
	aggrepo "bestsellers/internal/services/aggregate/repo"
	aggsvc "bestsellers/internal/services/aggregate/service"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	var (
		fYear    = flag.Int("year", 0, "year to aggregate (0 = current)")
		fNoLease = flag.Bool("no-lease", false, "skip the per-year run lease")
	)
	flag.Parse()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "bestsellers",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{Cfg: root, PG: st.PG, Log: *l}

	var lease aggsvc.LeaseFunc
	if !*fNoLease {
		lease = guardrails.MakeYearLease(deps, "aggregate-cli", root.MayDuration("AGGREGATE_LEASE_TTL", 0))
	}
	svc := aggsvc.New(st.PG, aggrepo.NewPG(), lease, aggsvc.ConfigFromEnv(root))

	out, err := svc.Aggregate(context.Background(), aggdom.RunInput{Year: *fYear})
	if err != nil {
		l.Fatal().Err(err).Msg("aggregation run failed")
	}
	l.Info().
		Str("run_id", out.RunID).
		Int("year", out.Year).
		Int("books", out.Books).
		Int("regions", out.Regions).
		Int("rankings", out.Rankings).
		Int("skipped", out.Skipped).
		Msg("aggregation run finished")
}
