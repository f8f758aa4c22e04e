package usecases

import (
	"encoding/json"
	"strconv"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// exactSeries stores each value as its shortest decimal text. strconv writes
// and parses "+Inf", "-Inf" and "NaN", so a cached analysis decodes to the
// same values a fresh run returns.
type exactSeries []string

func toExact(s domain.Series) exactSeries {
	if s == nil {
		return nil
	}
	out := make(exactSeries, len(s))
	for i, v := range s {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

func (e exactSeries) series() (domain.Series, error) {
	if e == nil {
		return nil, nil
	}
	out := make(domain.Series, len(e))
	for i, tok := range e {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type cachedKinematics struct {
	Elapsed        exactSeries `json:"elapsed_s"`
	DisplacementNS exactSeries `json:"ns_displacement_km"`
	DisplacementEW exactSeries `json:"ew_displacement_km"`
	VelocityNS     exactSeries `json:"ns_velocity_kms"`
	VelocityEW     exactSeries `json:"ew_velocity_kms"`
	AccelerationNS exactSeries `json:"ns_acceleration_kms2"`
	AccelerationEW exactSeries `json:"ew_acceleration_kms2"`
}

// cachedAnalysis is the cache representation of an analysis. Its Kinematics
// field shadows the embedded one.
type cachedAnalysis struct {
	*domain.Analysis
	Kinematics cachedKinematics `json:"kinematics"`
}

func encodeCached(a *domain.Analysis) ([]byte, error) {
	k := &a.Kinematics
	return json.Marshal(cachedAnalysis{
		Analysis: a,
		Kinematics: cachedKinematics{
			Elapsed:        toExact(k.Elapsed),
			DisplacementNS: toExact(k.DisplacementNS),
			DisplacementEW: toExact(k.DisplacementEW),
			VelocityNS:     toExact(k.VelocityNS),
			VelocityEW:     toExact(k.VelocityEW),
			AccelerationNS: toExact(k.AccelerationNS),
			AccelerationEW: toExact(k.AccelerationEW),
		},
	})
}

func decodeCached(data []byte) (*domain.Analysis, error) {
	c := cachedAnalysis{Analysis: &domain.Analysis{}}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	k := &c.Analysis.Kinematics
	for _, f := range []struct {
		dst *domain.Series
		src exactSeries
	}{
		{&k.Elapsed, c.Kinematics.Elapsed},
		{&k.DisplacementNS, c.Kinematics.DisplacementNS},
		{&k.DisplacementEW, c.Kinematics.DisplacementEW},
		{&k.VelocityNS, c.Kinematics.VelocityNS},
		{&k.VelocityEW, c.Kinematics.VelocityEW},
		{&k.AccelerationNS, c.Kinematics.AccelerationNS},
		{&k.AccelerationEW, c.Kinematics.AccelerationEW},
	} {
		s, err := f.src.series()
		if err != nil {
			return nil, err
		}
		*f.dst = s
	}
	return c.Analysis, nil
}
