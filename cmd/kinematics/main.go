package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/samirrijal/trackmotion/internal/adapters/chart"
	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	"github.com/samirrijal/trackmotion/internal/adapters/localfs"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/config"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
	"github.com/samirrijal/trackmotion/internal/pkg/logging"
)

// Exit status for runs whose numbers were computed but some artifacts failed.
const exitArtifactFailure = 2

func main() {
	cfg, err := config.Load("trackmotion-cli")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetupStderr(cfg.Log.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, domain.ErrOutputWrite):
		fmt.Fprintf(os.Stderr, "some artifacts were not written: %v\n", err)
		stop()
		os.Exit(exitArtifactFailure)
	default:
		log.Fatalf("kinematics: %v", err)
	}
}

type cliOptions struct {
	input    string
	mode     string
	outDir   string
	base     string
	chart    string
	model    string
	parallel bool
}

func parseFlags(cfg *config.Config, args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("kinematics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &cliOptions{}
	fs.StringVar(&o.input, "input", "", "GPX file to analyse (or first positional argument)")
	fs.StringVar(&o.mode, "mode", string(domain.VariantExtended), "minimal (displacement chart) or extended (charts and table)")
	fs.StringVar(&o.outDir, "out", cfg.Output.Dir, "output directory for per-series charts and the table")
	fs.StringVar(&o.base, "base", "", "file stem for artifacts (default: input file name)")
	fs.StringVar(&o.chart, "chart", "", "displacement chart path in minimal mode (default: <out>/<base>_displacement.png)")
	fs.StringVar(&o.model, "model", cfg.Kinematics.DistanceModel, "distance model: wgs84 or sphere")
	fs.BoolVar(&o.parallel, "parallel", cfg.Kinematics.ParallelAxes, "compute the two axes concurrently")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: kinematics [flags] [track.gpx]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.input == "" && fs.NArg() > 0 {
		o.input = fs.Arg(0)
	}
	if o.input == "" {
		fs.Usage()
		return nil, errors.New("no input file given")
	}
	if o.base == "" {
		o.base = strings.TrimSuffix(filepath.Base(o.input), filepath.Ext(o.input))
	}
	return o, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	o, err := parseFlags(cfg, args, os.Stderr)
	if err != nil {
		return err
	}
	opts, err := domain.OptionsFor(domain.Variant(o.mode))
	if err != nil {
		return err
	}
	opts.ParallelAxes = o.parallel
	model, err := geospatial.ParseModel(o.model)
	if err != nil {
		return err
	}

	reader := gpx.NewReader()
	track, err := reader.ReadFile(ctx, o.input)
	if err != nil {
		return err
	}

	plan := domain.Plan{OutputDir: o.outDir, BaseName: o.base}
	if !opts.EmitPerSeriesCharts {
		plan.OverlayChartPath = o.chart
		if plan.OverlayChartPath == "" {
			plan.OverlayChartPath = plan.OverlayPath()
		}
	}

	svc := usecases.NewAnalysisService(usecases.AnalysisDeps{
		Distance: model,
		Charts:   chart.NewRenderer(cfg.Output.ChartWidthIn, cfg.Output.ChartHeightIn),
		Tables:   csvexport.NewWriter(),
		Store:    localfs.New(),
	})
	a, err := svc.Run(ctx, track, opts, plan)
	if a != nil {
		report(stdout, a)
	}
	return err
}

func report(w io.Writer, a *domain.Analysis) {
	fmt.Fprintf(w, "%s: %d samples (%d skipped), %s\n", a.TrackName, a.SampleCount, a.DroppedCount, a.Variant)
	for _, art := range a.Artifacts {
		if art.OK() {
			fmt.Fprintf(w, "  saved   %s\n", art.Path)
		} else {
			fmt.Fprintf(w, "  FAILED  %s: %s\n", art.Path, art.Err)
		}
	}
}
