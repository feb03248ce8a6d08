package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/streetrisk/internal/pkg/config"
	"github.com/samirrijal/streetrisk/internal/pkg/logging"
)

var upFiles = []string{
	"migrations/001_init_extensions.sql",
	"migrations/002_core_tables.sql",
}

// downStatements drop the tables in reverse creation order; extensions stay.
var downStatements = []string{
	"DROP TABLE IF EXISTS score_runs",
	"DROP TABLE IF EXISTS point_samples",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("streetrisk-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text", "streetrisk-migrate")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		err = up(ctx, pool)
	case "down":
		err = down(ctx, pool)
	case "status":
		err = status(ctx, pool)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		slog.Error("migration failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func up(ctx context.Context, pool *pgxpool.Pool) error {
	for _, f := range upFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}
	slog.Info("all migrations applied", "count", len(upFiles))
	return nil
}

func down(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range downStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
		fmt.Printf("OK  %s\n", stmt)
	}
	slog.Info("tables dropped")
	return nil
}

func status(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"point_samples", "score_runs"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check %s: %w", table, err)
		}
		state := "missing"
		if exists {
			state = "present"
		}
		fmt.Printf("%-14s %s\n", table, state)
	}
	return nil
}
