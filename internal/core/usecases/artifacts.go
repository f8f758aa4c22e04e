package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/ports"
	"github.com/samirrijal/trackmotion/internal/pkg/metrics"
	"github.com/samirrijal/trackmotion/internal/pkg/telemetry"
)

const xLabel = "Time (seconds)"

// Line colours follow the original charts.
const (
	colorGreen  = "#008000"
	colorPurple = "#800080"
	colorBlue   = "#0000FF"
	colorOrange = "#FFA500"
	colorRed    = "#FF0000"
)

type quantity struct {
	name   string // file-name component
	title  string
	yLabel string
	ns, ew func(*domain.Kinematics) domain.Series
	nsClr  string
	ewClr  string
}

var quantities = []quantity{
	{
		name: "displacement", title: "Displacement", yLabel: "Displacement (km)",
		ns:    func(k *domain.Kinematics) domain.Series { return k.DisplacementNS },
		ew:    func(k *domain.Kinematics) domain.Series { return k.DisplacementEW },
		nsClr: colorGreen, ewClr: colorPurple,
	},
	{
		name: "velocity", title: "Velocity", yLabel: "Velocity (km/s)",
		ns:    func(k *domain.Kinematics) domain.Series { return k.VelocityNS },
		ew:    func(k *domain.Kinematics) domain.Series { return k.VelocityEW },
		nsClr: colorBlue, ewClr: colorOrange,
	},
	{
		name: "acceleration", title: "Acceleration", yLabel: "Acceleration (km/s²)",
		ns:    func(k *domain.Kinematics) domain.Series { return k.AccelerationNS },
		ew:    func(k *domain.Kinematics) domain.Series { return k.AccelerationEW },
		nsClr: colorRed, ewClr: colorPurple,
	},
}

type artifactJob struct {
	kind  string
	name  string
	path  string
	write func(ctx context.Context, w io.Writer) error
}

// Run computes the kinematics and writes the artifacts the options ask for.
//
// Each artifact is opened, written and closed on its own. A failure is
// recorded on the returned analysis and reported through an error wrapping
// domain.ErrOutputWrite, and the remaining artifacts are still attempted.
// When the error is an output failure the analysis is non-nil.
func (s *AnalysisService) Run(ctx context.Context, track *domain.Track, opts domain.Options, plan domain.Plan) (*domain.Analysis, error) {
	opts = opts.Normalize()
	a, err := s.Compute(ctx, track, opts)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return a, nil
	}
	return a, s.WriteArtifacts(ctx, a, opts, plan)
}

// WriteArtifacts renders charts and the table for an already computed
// analysis and records one domain.Artifact per attempt, replacing any earlier
// outcomes. When the analysis is stored the outcomes are saved with it.
func (s *AnalysisService) WriteArtifacts(ctx context.Context, a *domain.Analysis, opts domain.Options, plan domain.Plan) error {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanWriteArtifacts)
	defer span.End()

	if s.store == nil {
		return fmt.Errorf("no artifact store configured: %w", domain.ErrOutputWrite)
	}

	jobs := s.plan(&a.Kinematics, opts.Normalize(), plan)
	if len(jobs) == 0 {
		return nil
	}

	a.Artifacts = nil
	err := s.writeArtifacts(ctx, a, jobs, plan)
	if rerr := s.recordArtifacts(ctx, a); rerr != nil {
		span.RecordError(rerr)
		err = errors.Join(err, rerr)
	}
	return err
}

func (s *AnalysisService) writeArtifacts(ctx context.Context, a *domain.Analysis, jobs []artifactJob, plan domain.Plan) error {
	if plan.OutputDir != "" {
		if err := s.store.Prepare(ctx, plan.OutputDir); err != nil {
			for _, j := range jobs {
				a.Artifacts = append(a.Artifacts, domain.Artifact{Kind: j.kind, Name: j.name, Path: j.path, Err: err.Error()})
				metrics.ArtifactFailures.WithLabelValues(j.kind).Inc()
			}
			return fmt.Errorf("create output dir %s: %w: %w", plan.OutputDir, domain.ErrOutputWrite, err)
		}
	}

	var errs []error
	for _, j := range jobs {
		art := domain.Artifact{Kind: j.kind, Name: j.name, Path: j.path}
		if err := s.writeOne(ctx, j); err != nil {
			art.Err = err.Error()
			errs = append(errs, fmt.Errorf("%s %s: %w", j.kind, j.path, err))
			metrics.ArtifactFailures.WithLabelValues(j.kind).Inc()
			slog.ErrorContext(ctx, "artifact not written", "kind", j.kind, "path", j.path, "error", err)
		} else {
			slog.InfoContext(ctx, "artifact saved", "kind", j.kind, "name", j.name, "path", j.path)
		}
		a.Artifacts = append(a.Artifacts, art)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, errors.Join(errs...))
	}
	return nil
}

// recordArtifacts saves the artifact outcomes of a stored analysis and
// refreshes its cache entry.
func (s *AnalysisService) recordArtifacts(ctx context.Context, a *domain.Analysis) error {
	if s.repo == nil || a.ID == "" {
		return nil
	}
	if err := s.repo.UpdateArtifacts(ctx, a.ID, a.Artifacts); err != nil {
		slog.ErrorContext(ctx, "artifact outcomes not saved", "id", a.ID, "error", err)
		return fmt.Errorf("save artifacts of %s: %w", a.ID, err)
	}
	s.remember(ctx, idKey(a.ID), a)
	return nil
}

func (s *AnalysisService) writeOne(ctx context.Context, j artifactJob) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := s.store.Create(ctx, j.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return j.write(ctx, w)
}

// plan lists the artifacts in the order they are written: charts first, then
// the table.
func (s *AnalysisService) plan(k *domain.Kinematics, opts domain.Options, plan domain.Plan) []artifactJob {
	var jobs []artifactJob

	if s.charts != nil && (!opts.EmitPerSeriesCharts || plan.OverlayChartPath != "") {
		chart := ports.Chart{
			Title:  "Displacement vs. Time",
			XLabel: xLabel,
			YLabel: "Displacement (km)",
			X:      k.Elapsed,
			Legend: true,
			Lines: []ports.ChartSeries{
				{Label: "North-South Displacement", Color: colorGreen, Values: k.DisplacementNS},
				{Label: "East-West Displacement", Color: colorPurple, Values: k.DisplacementEW},
			},
		}
		jobs = append(jobs, s.chartJob("displacement", plan.OverlayPath(), chart))
	}

	if s.charts != nil && opts.EmitPerSeriesCharts && plan.OutputDir != "" {
		for _, q := range quantities {
			for _, axis := range []struct {
				code, label, clr string
				values           domain.Series
			}{
				{"NS", "North-South", q.nsClr, q.ns(k)},
				{"EW", "East-West", q.ewClr, q.ew(k)},
			} {
				if axis.values == nil {
					continue
				}
				chart := ports.Chart{
					Title:  fmt.Sprintf("%s %s vs. Time", axis.label, q.title),
					XLabel: xLabel,
					YLabel: q.yLabel,
					X:      k.Elapsed,
					Lines: []ports.ChartSeries{
						{Label: axis.label + " " + q.title, Color: axis.clr, Values: axis.values},
					},
				}
				jobs = append(jobs, s.chartJob(axis.code+"_"+q.name, plan.SeriesChartPath(axis.code, q.name), chart))
			}
		}
	}

	if s.tables != nil && opts.EmitTabular && plan.OutputDir != "" {
		jobs = append(jobs, artifactJob{
			kind: domain.ArtifactTable,
			name: "table",
			path: plan.TablePath(),
			write: func(ctx context.Context, w io.Writer) error {
				return s.tables.WriteTable(ctx, k, w)
			},
		})
	}
	return jobs
}

func (s *AnalysisService) chartJob(name, path string, chart ports.Chart) artifactJob {
	return artifactJob{
		kind: domain.ArtifactChart,
		name: name,
		path: path,
		write: func(ctx context.Context, w io.Writer) error {
			return s.charts.Render(ctx, chart, w)
		},
	}
}
