package kinematics

import (
	"github.com/samirrijal/trackmotion/internal/core/domain"
	"github.com/samirrijal/trackmotion/internal/pkg/geospatial"
)

// Axis identifies one of the two decomposition directions.
type Axis int

const (
	NorthSouth Axis = iota
	EastWest
)

// String returns the short label used in artifact names.
func (a Axis) String() string {
	if a == EastWest {
		return "EW"
	}
	return "NS"
}

// DecomposeAxis returns the signed distance in kilometres from origin to each
// point along one axis.
//
// North-south holds longitude at the origin's and measures the distance to
// (lat_i, lon_origin); east-west holds latitude and measures the distance to
// (lat_origin, lon_i). Points south or west of the origin are negative. This
// is an approximation: each axis is a single-coordinate-varied geodesic, not
// an orthogonal projection, and it drifts from a true projection as
// displacements grow.
func DecomposeAxis(points []domain.GeoPoint, origin domain.GeoPoint, axis Axis, dist geospatial.DistanceFunc) domain.Series {
	out := make(domain.Series, len(points))
	for i, p := range points {
		var d float64
		switch axis {
		case NorthSouth:
			d = dist(origin.Lat, origin.Lon, p.Lat, origin.Lon)
			if p.Lat < origin.Lat {
				d = -d
			}
		case EastWest:
			d = dist(origin.Lat, origin.Lon, origin.Lat, p.Lon)
			if p.Lon < origin.Lon {
				d = -d
			}
		}
		out[i] = d
	}
	return out
}

// Decompose returns the north-south and east-west displacement series.
func Decompose(points []domain.GeoPoint, origin domain.GeoPoint, dist geospatial.DistanceFunc) (ns, ew domain.Series) {
	return DecomposeAxis(points, origin, NorthSouth, dist), DecomposeAxis(points, origin, EastWest, dist)
}
