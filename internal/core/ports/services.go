package ports

import (
	"context"
	"io"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// TrackSource decodes a recorded track into samples.
type TrackSource interface {
	Read(ctx context.Context, r io.Reader, name string) (*domain.Track, error)
}

// ChartSeries is one line on a chart.
type ChartSeries struct {
	Label  string
	Color  string // hex, e.g. "#008000"
	Values domain.Series
}

// Chart describes a line chart over elapsed time.
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	X      domain.Series
	Lines  []ChartSeries
	Legend bool
}

// ChartRenderer encodes a chart image.
type ChartRenderer interface {
	Render(ctx context.Context, chart Chart, w io.Writer) error
}

// TableWriter encodes the aligned series as rows.
type TableWriter interface {
	WriteTable(ctx context.Context, k *domain.Kinematics, w io.Writer) error
}

// ArtifactStore opens destinations for output artifacts.
type ArtifactStore interface {
	// Prepare makes sure dir exists.
	Prepare(ctx context.Context, dir string) error
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, summary *domain.AnalysisSummary) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
