package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Manifest lists GPX tracks to analyse in one batch.
type Manifest struct {
	Source string       `json:"source"`
	Tracks []TrackEntry `json:"tracks"`
}

// TrackEntry names one GPX document by local path or by URL.
type TrackEntry struct {
	Name    string         `json:"name"`
	Path    string         `json:"path,omitempty"`
	URL     string         `json:"url,omitempty"`
	Variant domain.Variant `json:"variant,omitempty"`
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	base := filepath.Dir(path)
	for i := range m.Tracks {
		t := &m.Tracks[i]
		if (t.Path == "") == (t.URL == "") {
			return nil, fmt.Errorf("track %d: exactly one of path or url is required", i)
		}
		if t.Path != "" && !filepath.IsAbs(t.Path) {
			t.Path = filepath.Join(base, t.Path)
		}
		if t.Name == "" {
			src := t.Path
			if src == "" {
				src = t.URL
			}
			t.Name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		}
		if t.Variant == "" {
			t.Variant = domain.VariantExtended
		}
		if _, err := domain.OptionsFor(t.Variant); err != nil {
			return nil, fmt.Errorf("track %s: %w", t.Name, err)
		}
	}
	return &m, nil
}

// filterTracks keeps the named tracks; an empty filter keeps all of them.
func filterTracks(tracks []TrackEntry, names string) []TrackEntry {
	if strings.TrimSpace(names) == "" {
		return tracks
	}
	want := map[string]bool{}
	for _, n := range strings.Split(names, ",") {
		want[strings.TrimSpace(n)] = true
	}
	var out []TrackEntry
	for _, t := range tracks {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}
