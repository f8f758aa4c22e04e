package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/kinematics"
	"github.com/samirrijal/trackmotion/internal/core/ports"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
	"github.com/samirrijal/trackmotion/internal/pkg/metrics"
	"github.com/samirrijal/trackmotion/internal/pkg/telemetry"
)

// AnalysisDeps wires the collaborators of AnalysisService. Only Distance is
// required; nil collaborators disable the matching feature.
type AnalysisDeps struct {
	Distance  geospatial.Model
	Source    ports.TrackSource
	Charts    ports.ChartRenderer
	Tables    ports.TableWriter
	Store     ports.ArtifactStore
	Repo      ports.AnalysisRepository
	Cache     ports.CacheService
	Publisher ports.EventPublisher
}

// AnalysisService runs the track kinematics pipeline and hands the results
// to output collaborators.
type AnalysisService struct {
	dist      geospatial.DistanceFunc
	source    ports.TrackSource
	charts    ports.ChartRenderer
	tables    ports.TableWriter
	store     ports.ArtifactStore
	repo      ports.AnalysisRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(deps AnalysisDeps) *AnalysisService {
	return &AnalysisService{
		dist:      deps.Distance.Func(),
		source:    deps.Source,
		charts:    deps.Charts,
		tables:    deps.Tables,
		store:     deps.Store,
		repo:      deps.Repo,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		tracer:    telemetry.Tracer(),
		now:       time.Now,
	}
}

// Compute filters the track and derives elapsed time, displacement and, when
// requested, velocity and acceleration for both axes.
//
// Samples without a timestamp are dropped and reported as warnings. The run
// fails with domain.ErrInsufficientData when nothing usable remains, or when
// derivatives are requested for fewer than two samples.
func (s *AnalysisService) Compute(ctx context.Context, track *domain.Track, opts domain.Options) (*domain.Analysis, error) {
	opts = opts.Normalize()
	variant := opts.Variant()

	ctx, span := s.tracer.Start(ctx, telemetry.SpanCompute,
		trace.WithAttributes(attribute.String(telemetry.AttrVariant, string(variant))))
	defer span.End()

	start := time.Now()
	a, err := s.compute(ctx, track, opts)
	metrics.PipelineDuration.WithLabelValues(string(variant)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(string(variant), outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues(string(variant), "ok").Inc()
	span.SetAttributes(
		attribute.String(telemetry.AttrTrackName, a.TrackName),
		attribute.Int(telemetry.AttrSampleCount, a.SampleCount),
		attribute.Int(telemetry.AttrDroppedCount, a.DroppedCount),
	)
	return a, nil
}

func (s *AnalysisService) compute(ctx context.Context, track *domain.Track, opts domain.Options) (*domain.Analysis, error) {
	if track == nil {
		return nil, fmt.Errorf("no track: %w", domain.ErrInsufficientData)
	}
	log := slog.Default().With("track", track.Name)

	retained, times, warnings := filterSamples(track.Samples)
	for _, w := range warnings {
		log.WarnContext(ctx, "sample skipped", "index", w.Index, "code", w.Code, "reason", w.Message)
		metrics.SamplesDropped.WithLabelValues(w.Code).Inc()
	}
	if len(retained) == 0 {
		return nil, fmt.Errorf("no usable data: %d samples, none with a timestamp: %w",
			len(track.Samples), domain.ErrInsufficientData)
	}
	for i, p := range retained {
		if !geospatial.ValidCoordinate(p.Lat, p.Lon) {
			return nil, fmt.Errorf("sample %d: coordinate (%f, %f) out of range: %w",
				i, p.Lat, p.Lon, domain.ErrMalformedSource)
		}
	}

	order := 0
	if opts.IncludeVelocity {
		order = 1
	}
	if opts.IncludeAcceleration {
		order = 2
	}
	if order > 0 && len(retained) < 2 {
		return nil, fmt.Errorf("derivatives need at least 2 timestamped samples, got %d: %w",
			len(retained), domain.ErrInsufficientData)
	}

	elapsed, err := kinematics.Elapsed(times)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := retained[0]
	ns, ew, err := s.axes(ctx, retained, origin, elapsed, order, opts.ParallelAxes)
	if err != nil {
		return nil, err
	}

	metrics.SamplesProcessed.Add(float64(len(retained)))
	log.DebugContext(ctx, "kinematics computed", "samples", len(retained), "dropped", len(warnings), "order", order)

	return &domain.Analysis{
		TrackName:    track.Name,
		Variant:      opts.Variant(),
		Origin:       origin,
		StartedAt:    times[0],
		SampleCount:  len(retained),
		DroppedCount: len(warnings),
		Warnings:     warnings,
		Kinematics: domain.Kinematics{
			Elapsed:        elapsed,
			DisplacementNS: ns.Displacement,
			DisplacementEW: ew.Displacement,
			VelocityNS:     ns.Velocity,
			VelocityEW:     ew.Velocity,
			AccelerationNS: ns.Acceleration,
			AccelerationEW: ew.Acceleration,
		},
		CreatedAt: s.now().UTC(),
	}, nil
}

// axes runs the per-axis chains. The two axes share nothing, so they may run
// concurrently; each chain stays sequential.
func (s *AnalysisService) axes(ctx context.Context, points []domain.GeoPoint, origin domain.GeoPoint, elapsed domain.Series, order int, parallel bool) (ns, ew kinematics.AxisChain, err error) {
	run := func(ctx context.Context, axis kinematics.Axis, out *kinematics.AxisChain) error {
		attrs := trace.WithAttributes(attribute.String(telemetry.AttrAxis, axis.String()))

		_, span := s.tracer.Start(ctx, telemetry.SpanDecompose, attrs)
		disp := kinematics.DecomposeAxis(points, origin, axis, s.dist)
		span.End()

		_, span = s.tracer.Start(ctx, telemetry.SpanDifferentiate, attrs)
		defer span.End()
		chain, err := kinematics.Differentiate(disp, elapsed, order)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%s: %w", axis, err)
		}
		*out = chain
		return nil
	}

	if !parallel {
		if err := run(ctx, kinematics.NorthSouth, &ns); err != nil {
			return ns, ew, err
		}
		err = run(ctx, kinematics.EastWest, &ew)
		return ns, ew, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return run(gctx, kinematics.NorthSouth, &ns) })
	g.Go(func() error { return run(gctx, kinematics.EastWest, &ew) })
	err = g.Wait()
	return ns, ew, err
}

// filterSamples keeps timestamped samples in input order.
func filterSamples(samples []domain.Sample) ([]domain.GeoPoint, []time.Time, []domain.Warning) {
	points := make([]domain.GeoPoint, 0, len(samples))
	times := make([]time.Time, 0, len(samples))
	var warnings []domain.Warning
	for i, smp := range samples {
		if smp.Time == nil || smp.Time.IsZero() {
			warnings = append(warnings, domain.Warning{
				Index:   i,
				Code:    domain.WarnMissingTimestamp,
				Message: "point without time data skipped",
			})
			continue
		}
		points = append(points, smp.Point())
		times = append(times, *smp.Time)
	}
	return points, times, warnings
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrMalformedSource):
		return "malformed_source"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
