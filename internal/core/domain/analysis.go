package domain

import (
	"time"
)

// Variant names the two pipeline presets.
type Variant string

const (
	VariantMinimal  Variant = "minimal"
	VariantExtended Variant = "extended"
)

// Warning codes.
const (
	WarnMissingTimestamp = "missing_timestamp"
)

// Warning is a non-fatal, per-sample condition surfaced by a run.
type Warning struct {
	Index   int    `json:"index"` // position in the raw sample list
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Artifact kinds.
const (
	ArtifactChart = "chart"
	ArtifactTable = "table"
)

// Artifact records one attempt to persist an output.
type Artifact struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"`
	Err  string `json:"error,omitempty"`
}

// OK reports whether the artifact was written.
func (a Artifact) OK() bool { return a.Err == "" }

// Analysis is the result envelope of one pipeline run.
type Analysis struct {
	ID           string     `json:"id,omitempty"`
	TrackName    string     `json:"track_name"`
	Variant      Variant    `json:"variant"`
	Origin       GeoPoint   `json:"origin"`
	StartedAt    time.Time  `json:"started_at"` // origin timestamp
	SampleCount  int        `json:"sample_count"`
	DroppedCount int        `json:"dropped_count"`
	Warnings     []Warning  `json:"warnings,omitempty"`
	Kinematics   Kinematics `json:"kinematics"`
	Artifacts    []Artifact `json:"artifacts,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AnalysisSummary is the lightweight view used for listings and events.
type AnalysisSummary struct {
	ID           string    `json:"id"`
	TrackName    string    `json:"track_name"`
	Variant      Variant   `json:"variant"`
	Origin       GeoPoint  `json:"origin"`
	StartedAt    time.Time `json:"started_at"`
	DurationSec  float64   `json:"duration_s"`
	SampleCount  int       `json:"sample_count"`
	DroppedCount int       `json:"dropped_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary derives the summary view.
func (a *Analysis) Summary() AnalysisSummary {
	s := AnalysisSummary{
		ID:           a.ID,
		TrackName:    a.TrackName,
		Variant:      a.Variant,
		Origin:       a.Origin,
		StartedAt:    a.StartedAt,
		SampleCount:  a.SampleCount,
		DroppedCount: a.DroppedCount,
		CreatedAt:    a.CreatedAt,
	}
	if n := len(a.Kinematics.Elapsed); n > 0 {
		s.DurationSec = a.Kinematics.Elapsed[n-1]
	}
	return s
}

// Upload is a GPX document queued for asynchronous analysis.
type Upload struct {
	Name    string  `json:"name"`
	Variant Variant `json:"variant"`
	Body    []byte  `json:"-"`
}
