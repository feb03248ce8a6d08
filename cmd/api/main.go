package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/streetrisk/internal/adapters/http"
	natsadapter "github.com/samirrijal/streetrisk/internal/adapters/nats"
	"github.com/samirrijal/streetrisk/internal/adapters/postgres"
	"github.com/samirrijal/streetrisk/internal/adapters/valkey"
	"github.com/samirrijal/streetrisk/internal/app"
	"github.com/samirrijal/streetrisk/internal/pkg/config"
	"github.com/samirrijal/streetrisk/internal/pkg/logging"
	"github.com/samirrijal/streetrisk/internal/pkg/telemetry"
)

const service = "streetrisk-api"

func main() {
	cfg, err := config.Load(service)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	var infra app.Infra

	// Database: required only when samples live in PostGIS.
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		if cfg.Samples.Backend == config.BackendPostgres {
			log.Fatalf("database: %v", err)
		}
		slog.Warn("database unavailable, runs will not be persisted", "error", err)
	} else {
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		infra.DB = db
	}

	// Cache
	if cfg.Valkey.Enabled {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Namespace)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			infra.Cache = cache
		}
	}

	// NATS: the publisher queues rescores, the raw connection feeds /ws.
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			infra.Publisher = pub
			natsConn = pub.Conn()
		}
	}

	streets, err := app.NewStreetService(cfg, infra)
	if err != nil {
		log.Fatalf("street service: %v", err)
	}

	deps := &http.Dependencies{
		Streets:        streets,
		NATS:           natsConn,
		DB:             infra.DB,
		Cache:          infra.Cache,
		RequestTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Fiber
	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Street Risk API",
	})
	fiberApp.Use(recover.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(fiberApp, deps)

	// Warm the street cache so the first request does not wait on Overpass.
	go func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer warmCancel()
		if list, err := streets.Streets(warmCtx); err == nil {
			slog.Info("street cache warmed", "streets", len(list))
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := fiberApp.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
