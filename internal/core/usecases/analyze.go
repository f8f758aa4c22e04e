package usecases

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/pkg/metrics"
	"github.com/samirrijal/trackmotion/internal/pkg/telemetry"
)

const (
	analysisTTL = 3600
	maxPageSize = 100
)

var errNoRepository = errors.New("analysis repository not configured")

// Analyze decodes a GPX document, computes the kinematics for the options'
// variant, persists the result and announces it. Identical documents analysed
// under the same name and options are served from the cache.
func (s *AnalysisService) Analyze(ctx context.Context, r io.Reader, name string, opts domain.Options) (*domain.Analysis, error) {
	opts = opts.Normalize()
	ctx, span := s.tracer.Start(ctx, telemetry.SpanAnalyze,
		trace.WithAttributes(
			attribute.String(telemetry.AttrTrackName, name),
			attribute.String(telemetry.AttrVariant, string(opts.Variant())),
		))
	defer span.End()

	a, err := s.analyze(ctx, r, name, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return a, nil
}

func (s *AnalysisService) analyze(ctx context.Context, r io.Reader, name string, opts domain.Options) (*domain.Analysis, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no track source configured: %w", domain.ErrSourceUnavailable)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read track %q: %w: %w", name, domain.ErrSourceUnavailable, err)
	}

	key := contentKey(raw, name, opts)
	if a, ok := s.cached(ctx, key, "analyze"); ok {
		return a, nil
	}

	track, err := s.source.Read(ctx, bytes.NewReader(raw), name)
	if err != nil {
		return nil, err
	}

	a, err := s.Compute(ctx, track, opts)
	if err != nil {
		return nil, err
	}
	a.ID = uuid.NewString()

	if s.repo != nil {
		pctx, span := s.tracer.Start(ctx, telemetry.SpanPersist)
		err := s.repo.Save(pctx, a)
		span.End()
		if err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}

	s.remember(ctx, key, a)
	s.remember(ctx, idKey(a.ID), a)
	s.announce(ctx, a)
	return a, nil
}

// Get returns a stored analysis by ID.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	if a, ok := s.cached(ctx, idKey(id), "get"); ok {
		return a, nil
	}
	if s.repo == nil {
		return nil, errNoRepository
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, idKey(id), a)
	return a, nil
}

// List returns a page of analysis summaries, newest first, and the total count.
func (s *AnalysisService) List(ctx context.Context, offset, limit int) ([]domain.AnalysisSummary, int, error) {
	if s.repo == nil {
		return nil, 0, errNoRepository
	}
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

// ExportCSV writes a stored analysis as a table.
func (s *AnalysisService) ExportCSV(ctx context.Context, id string, w io.Writer) error {
	if s.tables == nil {
		return fmt.Errorf("no table writer configured: %w", domain.ErrOutputWrite)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.tables.WriteTable(ctx, &a.Kinematics, w)
}

func (s *AnalysisService) announce(ctx context.Context, a *domain.Analysis) {
	if s.publisher == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, telemetry.SpanPublishComplete)
	defer span.End()

	sum := a.Summary()
	if err := s.publisher.PublishAnalysisCompleted(ctx, &sum); err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "publish analysis completed", "id", a.ID, "error", err)
	}
}

func (s *AnalysisService) cached(ctx context.Context, key, op string) (*domain.Analysis, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return nil, false
	}
	a, err := decodeCached(data)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return a, true
}

func (s *AnalysisService) remember(ctx context.Context, key string, a *domain.Analysis) {
	if s.cache == nil {
		return
	}
	if data, err := encodeCached(a); err == nil {
		_ = s.cache.Set(ctx, key, data, analysisTTL)
	}
}

// contentKey digests the document and the track name, so re-uploading the
// same bytes under a new name is a new analysis.
func contentKey(raw []byte, name string, opts domain.Options) string {
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{0})
	h.Write([]byte(name))
	order := 0
	if opts.IncludeVelocity {
		order++
	}
	if opts.IncludeAcceleration {
		order++
	}
	return fmt.Sprintf("analysis:%s:%d:%s", opts.Variant(), order, hex.EncodeToString(h.Sum(nil)))
}

func idKey(id string) string { return "analysis:id:" + id }
