package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirrijal/streetrisk/internal/adapters/csvsource"
	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/core/usecases"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
	"github.com/samirrijal/streetrisk/internal/pkg/logging"
)

// The ingestor copies the CSV sample exports into PostGIS so the API and
// rescorer can run with samples.backend=postgres.
func main() {
	streetView := flag.String("street-view", "", "street-view CSV; overrides the newest analyzer export")
	crime := flag.String("crime", "", "crime CSV; overrides samples.crime_file")
	flag.Parse()

	cfg, err := config.Load("streetrisk-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "streetrisk-ingestor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	srcCfg := csvsource.Config{
		StreetViewDir:  cfg.Samples.StreetViewDir,
		StreetViewGlob: cfg.Samples.StreetViewGlob,
		StreetViewFile: cfg.Samples.StreetViewFile,
		CrimeFile:      cfg.Samples.CrimeFile,
	}
	if *streetView != "" {
		srcCfg.StreetViewDir = ""
		srcCfg.StreetViewFile = *streetView
	}
	if *crime != "" {
		srcCfg.CrimeFile = *crime
	}

	svc := usecases.NewSampleService(postgres.NewSampleRepo(db))

	start := time.Now()
	written, err := svc.Import(ctx, csvsource.New(srcCfg))
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
	for src, n := range written {
		slog.Info("source replaced", "source", src, "rows", n)
	}

	counts, err := svc.Counts(ctx)
	if err != nil {
		slog.Warn("count samples", "error", err)
	}
	slog.Info("ingestion complete", "stored", counts, "duration", time.Since(start))
}
