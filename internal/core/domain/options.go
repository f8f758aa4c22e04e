package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Options selects which derived series and which artifacts a run produces.
type Options struct {
	IncludeVelocity     bool `json:"include_velocity"`
	IncludeAcceleration bool `json:"include_acceleration"`
	EmitTabular         bool `json:"emit_tabular"`
	EmitPerSeriesCharts bool `json:"emit_per_series_charts"`

	// ParallelAxes computes the NS and EW chains concurrently.
	ParallelAxes bool `json:"parallel_axes,omitempty"`
}

// MinimalOptions reproduces the displacement-only overlay chart.
func MinimalOptions() Options {
	return Options{}
}

// ExtendedOptions produces velocity, acceleration, six charts and a table.
func ExtendedOptions() Options {
	return Options{
		IncludeVelocity:     true,
		IncludeAcceleration: true,
		EmitTabular:         true,
		EmitPerSeriesCharts: true,
	}
}

// OptionsFor returns the preset for a variant.
func OptionsFor(v Variant) (Options, error) {
	switch v {
	case VariantMinimal:
		return MinimalOptions(), nil
	case VariantExtended:
		return ExtendedOptions(), nil
	default:
		return Options{}, fmt.Errorf("unknown variant %q", v)
	}
}

// Normalize applies implications between flags: acceleration needs velocity.
func (o Options) Normalize() Options {
	if o.IncludeAcceleration {
		o.IncludeVelocity = true
	}
	return o
}

// NeedsDerivative reports whether the run differentiates at all.
func (o Options) NeedsDerivative() bool {
	return o.IncludeVelocity || o.IncludeAcceleration
}

// Variant labels the options for metrics and persistence.
func (o Options) Variant() Variant {
	if o.NeedsDerivative() {
		return VariantExtended
	}
	return VariantMinimal
}

// Plan says where artifacts go.
type Plan struct {
	OutputDir        string `json:"output_dir"`
	BaseName         string `json:"base_name"`
	OverlayChartPath string `json:"overlay_chart_path,omitempty"`
}

// Empty reports whether no artifact location was given.
func (p Plan) Empty() bool {
	return p.OutputDir == "" && p.OverlayChartPath == ""
}

// Base returns the file stem for per-series artifacts, defaulting to the
// output directory's last element.
func (p Plan) Base() string {
	if p.BaseName != "" {
		return p.BaseName
	}
	b := filepath.Base(filepath.Clean(p.OutputDir))
	if b == "." || b == string(filepath.Separator) {
		return "track"
	}
	return b
}

// SeriesChartPath is the per-series chart location, e.g. out/run_NS_velocity.png.
func (p Plan) SeriesChartPath(axis, quantity string) string {
	name := fmt.Sprintf("%s_%s_%s.png", p.Base(), strings.ToUpper(axis), strings.ToLower(quantity))
	return filepath.Join(p.OutputDir, name)
}

// OverlayPath is the combined displacement chart location.
func (p Plan) OverlayPath() string {
	if p.OverlayChartPath != "" {
		return p.OverlayChartPath
	}
	return filepath.Join(p.OutputDir, p.Base()+"_displacement.png")
}

// TablePath is the CSV location.
func (p Plan) TablePath() string {
	return filepath.Join(p.OutputDir, p.Base()+".csv")
}
