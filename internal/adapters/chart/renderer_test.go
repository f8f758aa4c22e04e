package chart_test

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/samirrijal/trackmotion/internal/adapters/chart"
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/core/ports"
)

func overlay() ports.Chart {
	return ports.Chart{
		Title:  "Displacement vs. Time",
		XLabel: "Time (seconds)",
		YLabel: "Displacement (km)",
		X:      domain.Series{0, 1, 2, 4},
		Legend: true,
		Lines: []ports.ChartSeries{
			{Label: "North-South Displacement", Color: "#008000", Values: domain.Series{0, 0.1, 0.2, 0.35}},
			{Label: "East-West Displacement", Color: "#800080", Values: domain.Series{0, -0.05, -0.07, -0.1}},
		},
	}
}

func TestRenderer_WritesPNGOfRequestedSize(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.NewRenderer(4, 2).Render(context.Background(), overlay(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		t.Errorf("expected a landscape image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderer_SkipsNonFinitePoints(t *testing.T) {
	c := overlay()
	c.Lines[0].Values = domain.Series{0, math.Inf(1), math.NaN(), 0.3}

	var buf bytes.Buffer
	if err := chart.NewRenderer(0, 0).Render(context.Background(), c, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected image bytes")
	}
}

func TestRenderer_SinglePoint(t *testing.T) {
	c := ports.Chart{
		Title: "Displacement vs. Time",
		X:     domain.Series{0},
		Lines: []ports.ChartSeries{{Label: "ns", Values: domain.Series{0}}},
	}
	var buf bytes.Buffer
	if err := chart.NewRenderer(2, 1).Render(context.Background(), c, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderer_LengthMismatch(t *testing.T) {
	c := overlay()
	c.Lines[1].Values = domain.Series{0}
	if err := chart.NewRenderer(2, 1).Render(context.Background(), c, &bytes.Buffer{}); err == nil {
		t.Error("expected error for misaligned series")
	}
}

func TestRenderer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := chart.NewRenderer(2, 1).Render(ctx, overlay(), &bytes.Buffer{}); err == nil {
		t.Error("expected context error")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{"#008000", color.RGBA{G: 0x80, A: 0xff}, false},
		{"FFA500", color.RGBA{R: 0xff, G: 0xa5, A: 0xff}, false},
		{"", color.Black, false},
		{"#12", nil, true},
		{"#zzzzzz", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := chart.ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
