package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/ports"
	"github.com/samirrijal/trackmotion/internal/core/usecases"
)

// ErrTypeInput marks application errors caused by the track itself.
const ErrTypeInput = "InputError"

// AnalysisActivities holds the activity implementations for AnalyzeTrackWorkflow.
// Analyses should be built without a publisher; announcing is its own step.
type AnalysisActivities struct {
	Analyses  *usecases.AnalysisService
	Publisher ports.EventPublisher
}

// RunAnalysis reads the source file, computes and stores the analysis, and
// writes the artifacts named by the plan. Artifact failures are reported on
// the result and do not fail the activity.
func (a *AnalysisActivities) RunAnalysis(ctx context.Context, in AnalyzeTrackInput) (*AnalyzeTrackResult, error) {
	variant := in.Variant
	if variant == "" {
		variant = domain.VariantExtended
	}
	opts, err := domain.OptionsFor(variant)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInput, err)
	}
	opts.ParallelAxes = in.ParallelAxes

	f, err := os.Open(in.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", in.SourcePath, domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	name := in.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(in.SourcePath), filepath.Ext(in.SourcePath))
	}

	an, err := a.Analyses.Analyze(ctx, f, name, opts)
	if err != nil {
		if domain.IsInputError(err) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInput, err)
		}
		return nil, err
	}

	if !in.Plan.Empty() {
		if in.Plan.BaseName == "" {
			in.Plan.BaseName = name
		}
		if err := a.Analyses.WriteArtifacts(ctx, an, opts, in.Plan); err != nil {
			slog.WarnContext(ctx, "artifacts incomplete", "id", an.ID, "error", err)
		}
	}

	return &AnalyzeTrackResult{Summary: an.Summary(), Artifacts: an.Artifacts}, nil
}

// PublishCompleted announces a stored analysis.
func (a *AnalysisActivities) PublishCompleted(ctx context.Context, summary domain.AnalysisSummary) error {
	if a.Publisher == nil {
		slog.InfoContext(ctx, "no publisher configured, skipping event", "id", summary.ID)
		return nil
	}
	if err := a.Publisher.PublishAnalysisCompleted(ctx, &summary); err != nil {
		return fmt.Errorf("publish analysis %s: %w", summary.ID, err)
	}
	return nil
}
