package geospatial

import (
	"fmt"
	"strings"

	"github.com/tidwall/geodesic"
)

// Model selects the earth model used for distances.
type Model string

const (
	// ModelWGS84 solves the inverse geodesic problem on the WGS 84 ellipsoid.
	ModelWGS84 Model = "wgs84"
	// ModelSphere uses the haversine formula on a mean-radius sphere.
	ModelSphere Model = "sphere"
)

// ParseModel maps a configuration string to a Model. Empty means WGS 84.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModelWGS84):
		return ModelWGS84, nil
	case string(ModelSphere), "haversine":
		return ModelSphere, nil
	default:
		return "", fmt.Errorf("unknown distance model %q", s)
	}
}

// Geodesic returns the ellipsoidal (WGS 84) distance in kilometres.
func Geodesic(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	var metres float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &metres, nil, nil)
	return metres / 1000
}

// DistanceFunc returns the distance in kilometres between two coordinates.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// Func returns the distance function for the model. Unknown models fall back
// to WGS 84.
func (m Model) Func() DistanceFunc {
	if m == ModelSphere {
		return Haversine
	}
	return Geodesic
}
