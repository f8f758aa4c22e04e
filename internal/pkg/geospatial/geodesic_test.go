package geospatial

import (
	"math"
	"testing"
)

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{43.263, -2.935, 43.264, -2.934},
		{0, 0, 0.001, 0},
		{-33.86, 151.21, 51.5, -0.12},
	}

	for _, m := range []Model{ModelWGS84, ModelSphere} {
		dist := m.Func()
		for _, p := range pairs {
			ab := dist(p[0], p[1], p[2], p[3])
			ba := dist(p[2], p[3], p[0], p[1])
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("%s: distance not symmetric: %v vs %v", m, ab, ba)
			}
			if ab <= 0 {
				t.Errorf("%s: expected positive distance, got %v", m, ab)
			}
		}
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	for _, m := range []Model{ModelWGS84, ModelSphere} {
		if d := m.Func()(43.263, -2.935, 43.263, -2.935); d != 0 {
			t.Errorf("%s: expected 0, got %v", m, d)
		}
	}
}

func TestGeodesic_OneMilliDegreeLatitudeAtEquator(t *testing.T) {
	// One degree of latitude at the equator is ~110.574 km on WGS 84.
	d := Geodesic(0, 0, 0.001, 0)
	if math.Abs(d-0.110574) > 1e-4 {
		t.Errorf("expected ~0.1106 km, got %v", d)
	}
}

func TestHaversine_Kilometres(t *testing.T) {
	d := Haversine(0, 0, 1, 0)
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, d)
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in      string
		want    Model
		wantErr bool
	}{
		{"", ModelWGS84, false},
		{"WGS84", ModelWGS84, false},
		{"sphere", ModelSphere, false},
		{"haversine", ModelSphere, false},
		{"mercator", "", true},
	}
	for _, tt := range tests {
		got, err := ParseModel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseModel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidCoordinate(t *testing.T) {
	if !ValidCoordinate(90, -180) {
		t.Error("expected boundary coordinate to be valid")
	}
	if ValidCoordinate(90.1, 0) || ValidCoordinate(0, 180.5) || ValidCoordinate(math.NaN(), 0) {
		t.Error("expected out-of-range coordinate to be invalid")
	}
}
