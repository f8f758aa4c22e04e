package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// TaskQueue is the queue the analysis worker polls.
const TaskQueue = "track-analysis"

// Activity names.
const (
	ActivityRunAnalysis      = "RunAnalysis"
	ActivityPublishCompleted = "PublishCompleted"
)

// AnalyzeTrackInput is the input for the analysis workflow. The GPX document
// is referenced by path so large tracks stay out of workflow history.
type AnalyzeTrackInput struct {
	SourcePath   string
	Name         string
	Variant      domain.Variant
	ParallelAxes bool
	Plan         domain.Plan
}

// AnalyzeTrackResult is what the workflow returns.
type AnalyzeTrackResult struct {
	Summary   domain.AnalysisSummary
	Artifacts []domain.Artifact
	Published bool
}

// AnalyzeTrackWorkflow runs the pipeline in one activity, then announces the
// result. Input errors are not retried. A failed announcement is logged and
// does not fail the workflow since the analysis is already stored.
func AnalyzeTrackWorkflow(ctx workflow.Context, input AnalyzeTrackInput) (*AnalyzeTrackResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting track analysis", "source", input.SourcePath, "variant", input.Variant)

	runCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInput},
		},
	})

	var res AnalyzeTrackResult
	if err := workflow.ExecuteActivity(runCtx, ActivityRunAnalysis, input).Get(runCtx, &res); err != nil {
		return nil, err
	}

	pubCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	})
	if err := workflow.ExecuteActivity(pubCtx, ActivityPublishCompleted, res.Summary).Get(pubCtx, nil); err != nil {
		logger.Warn("completion event not published", "id", res.Summary.ID, "error", err)
	} else {
		res.Published = true
	}

	logger.Info("Track analysis finished", "id", res.Summary.ID, "samples", res.Summary.SampleCount)
	return &res, nil
}
