package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/trackmotion/internal/adapters/chart"
	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	"github.com/samirrijal/trackmotion/internal/adapters/localfs"
	natsadapter "github.com/samirrijal/trackmotion/internal/adapters/nats"
	"github.com/samirrijal/trackmotion/internal/adapters/postgres"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/logging"
)

const maxConcurrentRuns = 4

// Usage: ingestor [-queue] [manifest.json] [name,name,...]
//
// By default every track is analysed in-process. With -queue the documents
// are published to tracks.upload.<name> for the realtime consumer instead.
func main() {
	queue := flag.Bool("queue", false, "publish tracks to NATS instead of analysing them here")
	flag.Parse()

	cfg, err := config.Load("trackmotion-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manifestPath := "manifest.json"
	if flag.NArg() > 0 {
		manifestPath = flag.Arg(0)
	}
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	tracks := filterTracks(manifest.Tracks, flag.Arg(1))

	client := &http.Client{Timeout: 120 * time.Second}

	var process func(ctx context.Context, t TrackEntry) error
	if *queue {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		process = func(ctx context.Context, t TrackEntry) error {
			return enqueueTrack(ctx, pub, client, t)
		}
	} else {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()

		deps := usecases.AnalysisDeps{
			Distance: cfg.Kinematics.Model(),
			Source:   gpx.NewReader(),
			Charts:   chart.NewRenderer(cfg.Output.ChartWidthIn, cfg.Output.ChartHeightIn),
			Tables:   csvexport.NewWriter(),
			Store:    localfs.New(),
			Repo:     postgres.NewAnalysisRepo(db),
		}
		if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats unavailable, analyses will not be announced", "error", err)
		} else {
			defer pub.Close()
			deps.Publisher = pub
		}
		svc := usecases.NewAnalysisService(deps)
		process = func(ctx context.Context, t TrackEntry) error {
			return ingestTrack(ctx, svc, client, cfg.Output.Dir, cfg.Kinematics.ParallelAxes, t)
		}
	}

	slog.Info("track ingestion starting", "tracks", len(tracks), "source", manifest.Source, "queue", *queue)

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRuns)
	for _, t := range tracks {
		g.Go(func() error {
			if err := process(gctx, t); err != nil {
				failed.Add(1)
				slog.Error("track failed", "track", t.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("ingestion complete", "tracks", len(tracks), "failed", failed.Load())
	if failed.Load() > 0 {
		stop()
		os.Exit(1)
	}
}

func enqueueTrack(ctx context.Context, pub *natsadapter.Publisher, client *http.Client, t TrackEntry) error {
	src, err := openTrack(ctx, client, t)
	if err != nil {
		return err
	}
	defer src.Close()

	body, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", t.Name, domain.ErrSourceUnavailable, err)
	}
	if err := pub.PublishUpload(ctx, &domain.Upload{Name: t.Name, Variant: t.Variant, Body: body}); err != nil {
		return fmt.Errorf("publish %s: %w", t.Name, err)
	}
	slog.Info("track queued", "track", t.Name, "bytes", len(body))
	return nil
}

func ingestTrack(ctx context.Context, svc *usecases.AnalysisService, client *http.Client, outDir string, parallel bool, t TrackEntry) error {
	opts, err := domain.OptionsFor(t.Variant)
	if err != nil {
		return err
	}
	opts.ParallelAxes = parallel

	src, err := openTrack(ctx, client, t)
	if err != nil {
		return err
	}
	defer src.Close()

	a, err := svc.Analyze(ctx, src, t.Name, opts)
	if err != nil {
		return err
	}

	plan := domain.Plan{OutputDir: filepath.Join(outDir, t.Name), BaseName: t.Name}
	if err := svc.WriteArtifacts(ctx, a, opts, plan); err != nil {
		slog.Warn("artifacts incomplete", "track", t.Name, "error", err)
	}
	slog.Info("track analysed", "track", t.Name, "id", a.ID, "samples", a.SampleCount, "dropped", a.DroppedCount)
	return nil
}

func openTrack(ctx context.Context, client *http.Client, t TrackEntry) (io.ReadCloser, error) {
	if t.Path != "" {
		f, err := os.Open(t.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w: %w", t.Path, domain.ErrSourceUnavailable, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w: %w", t.URL, domain.ErrSourceUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w: %w", t.URL, domain.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s: %w", resp.StatusCode, t.URL, domain.ErrSourceUnavailable)
	}
	return resp.Body, nil
}
