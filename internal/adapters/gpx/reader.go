// Package gpx reads GPS Exchange Format documents into tracks.
package gpx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Reader implements ports.TrackSource.
type Reader struct{}

// NewReader creates a GPX reader.
func NewReader() *Reader { return &Reader{} }

// Read decodes a GPX document and flattens every track segment, in document
// order, into one sample list. Points without a time element keep a nil
// Time so the pipeline can report them.
func (r *Reader) Read(ctx context.Context, src io.Reader, name string) (*domain.Track, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", name, domain.ErrSourceUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := gpx.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", name, domain.ErrMalformedSource, err)
	}

	t := &domain.Track{Name: trackName(doc, name)}
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				s := domain.Sample{Lat: p.Latitude, Lon: p.Longitude}
				if !p.Timestamp.IsZero() {
					ts := p.Timestamp
					s.Time = &ts
				}
				t.Samples = append(t.Samples, s)
			}
		}
	}
	return t, nil
}

// ReadFile opens path and decodes it.
func (r *Reader) ReadFile(ctx context.Context, path string) (*domain.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, domain.ErrSourceUnavailable, err)
	}
	defer f.Close()
	return r.Read(ctx, f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func trackName(doc *gpx.GPX, fallback string) string {
	if fallback != "" {
		return fallback
	}
	for _, trk := range doc.Tracks {
		if trk.Name != "" {
			return trk.Name
		}
	}
	return doc.Name
}
