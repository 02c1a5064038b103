package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"bestsellers/internal/modkit"
	"bestsellers/internal/modkit/module"
	"bestsellers/internal/platform/config"
	"bestsellers/internal/platform/logger"
	"bestsellers/internal/platform/store"

	ingdom "bestsellers/internal/services/ingest/domain"
	ingmod "bestsellers/internal/services/ingest/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	fFile := flag.String("file", "", "path to one week's list payload (json)")
	flag.Parse()
	if *fFile == "" {
		l.Panic().Msg("ingest: -file is required")
	}

	raw, err := os.ReadFile(*fFile)
	if err != nil {
		l.Panic().Err(err).Str("file", *fFile).Msg("payload read failed")
	}
	var payload ingdom.WeekPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		l.Panic().Err(err).Str("file", *fFile).Msg("payload is not valid json")
	}

	st, err := store.Open(context.Background(), store.Config{
		AppName: "bestsellers",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: chCfg.MayBool("ENABLED", false),
			URL:     chCfg.MayString("DBURL", ""),
			Role:    "ingest",
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

	deps := modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l}

	ing := ingmod.New(deps)
	module.Register(ing.Name(), ing.Ports())
	ports := module.MustPortsOf[ingmod.Ports](ing)

	out, err := ports.Ingestor.IngestWeek(context.Background(), payload)
	if err != nil {
		l.Fatal().Err(err).Str("week", payload.Week).Msg("ingestion failed")
	}
	l.Info().
		Str("job_id", out.JobID).
		Str("week", out.Week).
		Int("regions", out.Regions).
		Int("rows", out.Rows).
		Bool("archived", out.Archived).
		Msg("week ingested")
}
