package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	natsadapter "github.com/samirrijal/trackmotion/internal/adapters/nats"
	"github.com/samirrijal/trackmotion/internal/adapters/postgres"
	"github.com/samirrijal/trackmotion/internal/adapters/valkey"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/logging"
	"github.com/samirrijal/trackmotion/internal/pkg/metrics"
	"github.com/samirrijal/trackmotion/internal/pkg/telemetry"
)

// The realtime consumer analyses GPX documents queued on tracks.upload.>.
func main() {
	cfg, err := config.Load("trackmotion-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	deps := usecases.AnalysisDeps{
		Distance:  cfg.Kinematics.Model(),
		Source:    gpx.NewReader(),
		Repo:      postgres.NewAnalysisRepo(db),
		Publisher: pub,
	}
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
	}
	svc := usecases.NewAnalysisService(deps)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	handle := uploadHandler(svc, cfg.Kinematics.ParallelAxes)
	if err := sub.SubscribeUploads(ctx, handle); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	slog.Info("realtime consumer started", "subject", natsadapter.SubjectUploadAll)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received signal, shutting down realtime consumer", "signal", sig.String())
	cancel()
	// Give in-flight analyses time to finish
	time.Sleep(2 * time.Second)
}

func uploadHandler(svc *usecases.AnalysisService, parallel bool) func(context.Context, *domain.Upload) error {
	return func(ctx context.Context, u *domain.Upload) error {
		opts, err := domain.OptionsFor(u.Variant)
		if err != nil {
			metrics.UploadsConsumed.WithLabelValues("rejected").Inc()
			return fmt.Errorf("%w: %w", domain.ErrMalformedSource, err)
		}
		opts.ParallelAxes = parallel

		a, err := svc.Analyze(ctx, bytes.NewReader(u.Body), u.Name, opts)
		if err != nil {
			outcome := "error"
			if domain.IsInputError(err) {
				outcome = "rejected"
			}
			metrics.UploadsConsumed.WithLabelValues(outcome).Inc()
			return err
		}
		metrics.UploadsConsumed.WithLabelValues("ok").Inc()
		slog.InfoContext(ctx, "upload analysed", "name", u.Name, "id", a.ID, "samples", a.SampleCount)
		return nil
	}
}
