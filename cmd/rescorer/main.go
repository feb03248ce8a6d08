package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/streetrisk/internal/adapters/nats"
	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/adapters/valkey"
	"github.com/samirrijal/streetrisk/internal/app"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
	"github.com/samirrijal/streetrisk/internal/pkg/logging"
	"github.com/samirrijal/streetrisk/internal/pkg/telemetry"
	"github.com/samirrijal/streetrisk/internal/workflows"
)

const (
	service = "streetrisk-rescorer"
	// keepRuns bounds the score_runs history after each pass.
	keepRuns = 48
)

func main() {
	cfg, err := config.Load(service)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	var infra app.Infra
	var runs *postgres.RunRepo

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		if cfg.Samples.Backend == config.BackendPostgres {
			log.Fatalf("database: %v", err)
		}
		slog.Warn("database unavailable, runs will not be persisted", "error", err)
	} else {
		defer db.Close()
		go db.ReportPoolStats(ctx, 30*time.Second)
		infra.DB = db
		runs = postgres.NewRunRepo(db)
	}

	if cfg.Valkey.Enabled {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Namespace)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			infra.Cache = cache
		}
	}

	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, scores will not be announced", "error", err)
		} else {
			defer pub.Close()
			infra.Publisher = pub
		}
	}

	streets, err := app.NewStreetService(cfg, infra)
	if err != nil {
		log.Fatalf("street service: %v", err)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Rescore.TemporalHost,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Rescore.TaskQueue, worker.Options{})

	acts := &workflows.RescoreActivities{Streets: streets}
	if runs != nil {
		acts.Runs = runs
	}
	w.RegisterWorkflow(workflows.RescoreWorkflow)
	w.RegisterActivity(acts)

	start := func(ctx context.Context, reason string) error {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflows.RescoreWorkflowID,
			TaskQueue: cfg.Rescore.TaskQueue,
		}, workflows.RescoreWorkflow, workflows.RescoreInput{Reason: reason, KeepRuns: keepRuns})
		if err != nil {
			return fmt.Errorf("start rescore workflow: %w", err)
		}
		slog.InfoContext(ctx, "rescore workflow started", "reason", reason, "run_id", run.GetRunID())
		return nil
	}

	// On-demand rescores from POST /v1/streets/rescore.
	if cfg.NATS.Enabled {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable, only scheduled rescores will run", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeRescoreRequests(ctx, start); err != nil {
				slog.Warn("subscribe rescore requests", "error", err)
			}
		}
	}

	// Scheduled rescores.
	if interval := cfg.Rescore.Interval(); interval > 0 {
		go schedule(ctx, interval, start)
	}

	slog.Info("rescorer worker started", "task_queue", cfg.Rescore.TaskQueue, "interval", cfg.Rescore.Interval())
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// schedule starts one rescore immediately and then one per interval.
func schedule(ctx context.Context, interval time.Duration, start func(context.Context, string) error) {
	if err := start(ctx, "startup"); err != nil {
		slog.Warn("initial rescore", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := start(ctx, "schedule"); err != nil {
				slog.Warn("scheduled rescore", "error", err)
			}
		}
	}
}
