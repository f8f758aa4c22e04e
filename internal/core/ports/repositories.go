package ports

import (
	"context"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// AnalysisRepository persists analysis results.
type AnalysisRepository interface {
	// Save assigns an ID if empty and stores the analysis with its series.
	Save(ctx context.Context, a *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	// UpdateArtifacts replaces the recorded artifact outcomes of a stored
	// analysis. Unknown IDs yield domain.ErrNotFound.
	UpdateArtifacts(ctx context.Context, id string, artifacts []domain.Artifact) error
	List(ctx context.Context, offset, limit int) ([]domain.AnalysisSummary, int, error)
}
