package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/trackmotion/internal/adapters/chart"
	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	"github.com/samirrijal/trackmotion/internal/adapters/localfs"
	natsadapter "github.com/samirrijal/trackmotion/internal/adapters/nats"
	"github.com/samirrijal/trackmotion/internal/adapters/postgres"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/logging"
	"github.com/samirrijal/trackmotion/internal/workflows"
)

func main() {
	cfg, err := config.Load("trackmotion-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	acts := &workflows.AnalysisActivities{
		Analyses: usecases.NewAnalysisService(usecases.AnalysisDeps{
			Distance: cfg.Kinematics.Model(),
			Source:   gpx.NewReader(),
			Charts:   chart.NewRenderer(cfg.Output.ChartWidthIn, cfg.Output.ChartHeightIn),
			Tables:   csvexport.NewWriter(),
			Store:    localfs.New(),
			Repo:     postgres.NewAnalysisRepo(db),
		}),
	}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, completion events disabled", "error", err)
	} else {
		defer pub.Close()
		acts.Publisher = pub
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AnalyzeTrackWorkflow)
	w.RegisterActivity(acts)

	slog.Info("analysis worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
