package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Sample is one recorded position. Time is nil when the source had no
// timestamp for the point.
type Sample struct {
	Lat  float64    `json:"lat"`
	Lon  float64    `json:"lon"`
	Time *time.Time `json:"time,omitempty"`
}

// Point returns the sample's coordinate.
func (s Sample) Point() GeoPoint {
	return GeoPoint{Lat: s.Lat, Lon: s.Lon}
}

// Track is an ordered sequence of samples. Input order is trusted.
type Track struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// Series is a sequence of float64 values aligned on a track's sample index.
// Non-finite values encode as JSON null.
type Series []float64

// MarshalJSON implements json.Marshaler.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsNaN(s[i]) || math.IsInf(s[i], 0) {
			continue
		}
		v := s[i]
		out[i] = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Nulls decode as NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	var in []*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// Kinematics holds the series produced by one pipeline run. All series share
// the length and index alignment of Elapsed. Velocity and acceleration are nil
// when they were not requested.
type Kinematics struct {
	Elapsed        Series `json:"elapsed_s"`
	DisplacementNS Series `json:"ns_displacement_km"`
	DisplacementEW Series `json:"ew_displacement_km"`
	VelocityNS     Series `json:"ns_velocity_kms,omitempty"`
	VelocityEW     Series `json:"ew_velocity_kms,omitempty"`
	AccelerationNS Series `json:"ns_acceleration_kms2,omitempty"`
	AccelerationEW Series `json:"ew_acceleration_kms2,omitempty"`
}

// Len returns the number of aligned rows.
func (k *Kinematics) Len() int {
	if k == nil {
		return 0
	}
	return len(k.Elapsed)
}

// HasVelocity reports whether velocity series were computed.
func (k *Kinematics) HasVelocity() bool {
	return k != nil && k.VelocityNS != nil && k.VelocityEW != nil
}

// HasAcceleration reports whether acceleration series were computed.
func (k *Kinematics) HasAcceleration() bool {
	return k != nil && k.AccelerationNS != nil && k.AccelerationEW != nil
}
