package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// AnalysisRepo implements ports.AnalysisRepository with pgx.
type AnalysisRepo struct {
	db *DB
}

// NewAnalysisRepo creates a new AnalysisRepo.
func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

var pointColumns = []string{
	"analysis_id", "idx", "elapsed_s",
	"ns_displacement_km", "ew_displacement_km",
	"ns_velocity_kms", "ew_velocity_kms",
	"ns_acceleration_kms2", "ew_acceleration_kms2",
}

// Save stores the analysis header and bulk-copies its aligned series in one
// transaction.
func (r *AnalysisRepo) Save(ctx context.Context, a *domain.Analysis) error {
	warnings, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	artifacts, err := json.Marshal(a.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	sum := a.Summary()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO analyses (id, track_name, variant, origin_lat, origin_lon, started_at,
		                      duration_s, sample_count, dropped_count, warnings, artifacts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.TrackName, string(a.Variant), a.Origin.Lat, a.Origin.Lon, a.StartedAt,
		sum.DurationSec, a.SampleCount, a.DroppedCount, warnings, artifacts, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	k := &a.Kinematics
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"analysis_points"},
		pointColumns,
		pgx.CopyFromSlice(k.Len(), func(i int) ([]any, error) {
			return []any{
				a.ID, i, k.Elapsed[i],
				k.DisplacementNS[i], k.DisplacementEW[i],
				at(k.VelocityNS, i), at(k.VelocityEW, i),
				at(k.AccelerationNS, i), at(k.AccelerationEW, i),
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy points: %w", err)
	}
	return tx.Commit(ctx)
}

// GetByID loads an analysis and its series.
func (r *AnalysisRepo) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	var (
		a                   domain.Analysis
		variant             string
		warnings, artifacts []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, track_name, variant, origin_lat, origin_lon, started_at,
		       sample_count, dropped_count, warnings, artifacts, created_at
		FROM analyses WHERE id = $1
	`, id).Scan(
		&a.ID, &a.TrackName, &variant, &a.Origin.Lat, &a.Origin.Lon, &a.StartedAt,
		&a.SampleCount, &a.DroppedCount, &warnings, &artifacts, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	a.Variant = domain.Variant(variant)
	if err := json.Unmarshal(warnings, &a.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal(artifacts, &a.Artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT elapsed_s, ns_displacement_km, ew_displacement_km,
		       ns_velocity_kms, ew_velocity_kms, ns_acceleration_kms2, ew_acceleration_kms2
		FROM analysis_points WHERE analysis_id = $1 ORDER BY idx
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	k := &a.Kinematics
	for rows.Next() {
		var (
			t, ns, ew          float64
			vns, vew, ans, aew *float64
		)
		if err := rows.Scan(&t, &ns, &ew, &vns, &vew, &ans, &aew); err != nil {
			return nil, err
		}
		k.Elapsed = append(k.Elapsed, t)
		k.DisplacementNS = append(k.DisplacementNS, ns)
		k.DisplacementEW = append(k.DisplacementEW, ew)
		k.VelocityNS = appendOpt(k.VelocityNS, vns)
		k.VelocityEW = appendOpt(k.VelocityEW, vew)
		k.AccelerationNS = appendOpt(k.AccelerationNS, ans)
		k.AccelerationEW = appendOpt(k.AccelerationEW, aew)
	}
	return &a, rows.Err()
}

// UpdateArtifacts rewrites the artifacts column of one analysis.
func (r *AnalysisRepo) UpdateArtifacts(ctx context.Context, id string, artifacts []domain.Artifact) error {
	data, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `UPDATE analyses SET artifacts = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("update artifacts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns summaries newest first and the total number of analyses.
func (r *AnalysisRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisSummary, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM analyses`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, track_name, variant, origin_lat, origin_lon, started_at,
		       duration_s, sample_count, dropped_count, created_at
		FROM analyses
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.AnalysisSummary
	for rows.Next() {
		var (
			s       domain.AnalysisSummary
			variant string
		)
		if err := rows.Scan(&s.ID, &s.TrackName, &variant, &s.Origin.Lat, &s.Origin.Lon, &s.StartedAt,
			&s.DurationSec, &s.SampleCount, &s.DroppedCount, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.Variant = domain.Variant(variant)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// at returns s[i], or nil for a series that was not computed.
func at(s domain.Series, i int) any {
	if s == nil {
		return nil
	}
	return s[i]
}

// appendOpt keeps a series nil while its column is NULL.
func appendOpt(s domain.Series, v *float64) domain.Series {
	if v == nil {
		return s
	}
	return append(s, *v)
}
