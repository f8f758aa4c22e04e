// Package chart renders kinematics charts as PNG images with gonum/plot.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samirrijal/trackmotion/internal/core/ports"
)

// Default canvas size in inches.
const (
	DefaultWidth  = 12
	DefaultHeight = 6
)

// Renderer implements ports.ChartRenderer.
type Renderer struct {
	width, height vg.Length
	format        string
}

// NewRenderer creates a PNG renderer with the given size in inches. Zero
// values fall back to 12×6.
func NewRenderer(widthIn, heightIn float64) *Renderer {
	if widthIn <= 0 {
		widthIn = DefaultWidth
	}
	if heightIn <= 0 {
		heightIn = DefaultHeight
	}
	return &Renderer{
		width:  vg.Length(widthIn) * vg.Inch,
		height: vg.Length(heightIn) * vg.Inch,
		format: "png",
	}
}

// Render draws one line per series against the chart's X values.
// Non-finite points are left out of the line.
func (r *Renderer) Render(ctx context.Context, c ports.Chart, w io.Writer) error {
	p, err := r.build(c)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	wt, err := p.WriterTo(r.width, r.height, r.format)
	if err != nil {
		return fmt.Errorf("plot canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("plot encode: %w", err)
	}
	return nil
}

func (r *Renderer) build(c ports.Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	for _, s := range c.Lines {
		if len(s.Values) != len(c.X) {
			return nil, fmt.Errorf("series %q: %d values for %d times", s.Label, len(s.Values), len(c.X))
		}
		pts := finitePoints(c.X, s.Values)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Label, err)
		}
		clr, err := ParseColor(s.Color)
		if err != nil {
			return nil, err
		}
		line.Color = clr
		line.Width = vg.Points(1.5)
		p.Add(line)
		if c.Legend {
			p.Legend.Add(s.Label, line)
		}
	}
	return p, nil
}

func finitePoints(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
		}
	}
	return pts
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ParseColor decodes "#rrggbb". An empty string yields black.
func ParseColor(hex string) (color.Color, error) {
	if hex == "" {
		return color.Black, nil
	}
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("color %q: want #rrggbb", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("color %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
