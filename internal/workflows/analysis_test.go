package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/trackmotion/internal/adapters/chart"
	"github.com/samirrijal/trackmotion/internal/adapters/csvexport"
	"github.com/samirrijal/trackmotion/internal/adapters/gpx"
	"github.com/samirrijal/trackmotion/internal/adapters/localfs"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
)

const rideGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>ride</name><trkseg>
    <trkpt lat="0" lon="0"><time>2024-05-01T08:00:00Z</time></trkpt>
    <trkpt lat="0.001" lon="0"><time>2024-05-01T08:00:01Z</time></trkpt>
    <trkpt lat="0.002" lon="0.001"><time>2024-05-01T08:00:03Z</time></trkpt>
  </trkseg></trk>
</gpx>`

const untimedGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg><trkpt lat="0" lon="0"></trkpt></trkseg></trk>
</gpx>`

type memRepo struct {
	mu        sync.Mutex
	saved     []*domain.Analysis
	artifacts map[string][]domain.Artifact
}

func (m *memRepo) Save(ctx context.Context, a *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, a)
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	return nil, domain.ErrNotFound
}

func (m *memRepo) UpdateArtifacts(ctx context.Context, id string, arts []domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.artifacts == nil {
		m.artifacts = map[string][]domain.Artifact{}
	}
	m.artifacts[id] = append([]domain.Artifact(nil), arts...)
	return nil
}

func (m *memRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisSummary, int, error) {
	return nil, 0, nil
}

type memPublisher struct {
	mu     sync.Mutex
	err    error
	events []domain.AnalysisSummary
}

func (m *memPublisher) PublishAnalysisCompleted(ctx context.Context, s *domain.AnalysisSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, *s)
	return nil
}

func writeTrack(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commute.gpx")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newActivities(repo *memRepo, pub *memPublisher) *AnalysisActivities {
	return &AnalysisActivities{
		Analyses: usecases.NewAnalysisService(usecases.AnalysisDeps{
			Distance: geospatial.ModelWGS84,
			Source:   gpx.NewReader(),
			Charts:   chart.NewRenderer(4, 2),
			Tables:   csvexport.NewWriter(),
			Store:    localfs.New(),
			Repo:     repo,
		}),
		Publisher: pub,
	}
}

func runWorkflow(t *testing.T, acts *AnalysisActivities, in AnalyzeTrackInput) (*AnalyzeTrackResult, error) {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(AnalyzeTrackWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(AnalyzeTrackWorkflow, in)
	require.True(t, env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return nil, err
	}
	var res AnalyzeTrackResult
	require.NoError(t, env.GetWorkflowResult(&res))
	return &res, nil
}

func TestAnalyzeTrackWorkflow_StoresAndPublishes(t *testing.T) {
	repo, pub := &memRepo{}, &memPublisher{}
	res, err := runWorkflow(t, newActivities(repo, pub), AnalyzeTrackInput{SourcePath: writeTrack(t, rideGPX)})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	require.Equal(t, "commute", res.Summary.TrackName)
	require.Equal(t, domain.VariantExtended, res.Summary.Variant)
	require.Equal(t, 3, res.Summary.SampleCount)
	require.InDelta(t, 3.0, res.Summary.DurationSec, 1e-9)
	require.True(t, res.Published)
	require.Len(t, pub.events, 1)
	require.Equal(t, res.Summary.ID, pub.events[0].ID)
	require.Empty(t, res.Artifacts)
}

func TestAnalyzeTrackWorkflow_WritesPlannedArtifacts(t *testing.T) {
	out := t.TempDir()
	repo := &memRepo{}
	res, err := runWorkflow(t, newActivities(repo, &memPublisher{}), AnalyzeTrackInput{
		SourcePath: writeTrack(t, rideGPX),
		Variant:    domain.VariantExtended,
		Plan:       domain.Plan{OutputDir: out},
	})
	require.NoError(t, err)

	// six per-series charts and the table
	require.Len(t, res.Artifacts, 7)
	for _, a := range res.Artifacts {
		require.True(t, a.OK(), "%s: %s", a.Path, a.Err)
		_, statErr := os.Stat(a.Path)
		require.NoError(t, statErr)
	}
	require.FileExists(t, filepath.Join(out, "commute.csv"))

	// outcomes are stored with the analysis, not only returned
	require.Len(t, repo.saved, 1)
	stored := repo.artifacts[repo.saved[0].ID]
	require.Len(t, stored, 7)
	require.Equal(t, res.Artifacts, stored)
}

func TestAnalyzeTrackWorkflow_PublishFailureIsNotFatal(t *testing.T) {
	repo := &memRepo{}
	res, err := runWorkflow(t, newActivities(repo, &memPublisher{err: errors.New("broker down")}), AnalyzeTrackInput{
		SourcePath: writeTrack(t, rideGPX),
		Variant:    domain.VariantMinimal,
	})
	require.NoError(t, err)
	require.False(t, res.Published)
	require.Len(t, repo.saved, 1)
	require.Equal(t, domain.VariantMinimal, res.Summary.Variant)
}

func TestAnalyzeTrackWorkflow_InputErrorFails(t *testing.T) {
	repo := &memRepo{}
	_, err := runWorkflow(t, newActivities(repo, &memPublisher{}), AnalyzeTrackInput{SourcePath: writeTrack(t, untimedGPX)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient")
	require.Empty(t, repo.saved)
}

func TestAnalyzeTrackWorkflow_UnknownVariant(t *testing.T) {
	_, err := runWorkflow(t, newActivities(&memRepo{}, &memPublisher{}), AnalyzeTrackInput{
		SourcePath: writeTrack(t, rideGPX),
		Variant:    "full",
	})
	require.Error(t, err)
}

func TestPublishCompleted_WithoutPublisher(t *testing.T) {
	acts := &AnalysisActivities{}
	require.NoError(t, acts.PublishCompleted(context.Background(), domain.AnalysisSummary{ID: "x"}))
}
