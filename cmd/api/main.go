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

	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	"github.com/samirrijal/trackmotion/internal/adapters/http"
	natsadapter "github.com/samirrijal/trackmotion/internal/adapters/nats"
	"github.com/samirrijal/trackmotion/internal/adapters/postgres"
	"github.com/samirrijal/trackmotion/internal/adapters/valkey"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/logging"
	"github.com/samirrijal/trackmotion/internal/pkg/metrics"
	"github.com/samirrijal/trackmotion/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("trackmotion-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{
		DB:   db,
		Docs: http.DocsOptions{Route: cfg.Server.DocsRoute, SpecPath: cfg.Server.OpenAPIPath},
	}
	svcDeps := usecases.AnalysisDeps{
		Distance: cfg.Kinematics.Model(),
		Source:   gpx.NewReader(),
		Tables:   csvexport.NewWriter(),
		Repo:     postgres.NewAnalysisRepo(db),
	}

	// Cache
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		svcDeps.Cache = cache
		deps.Cache = cache
	}

	// NATS
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		svcDeps.Publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	if natsConn, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	deps.Analyses = usecases.NewAnalysisService(svcDeps)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Trackmotion API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, http.RouteOptions{
		Version:      version,
		ParallelAxes: cfg.Kinematics.ParallelAxes,
		RateLimit:    120,
	})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		}
	}
}
