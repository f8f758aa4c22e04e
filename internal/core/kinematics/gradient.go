package kinematics

import (
	"errors"
	"fmt"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// ErrLengthMismatch is returned when values and times differ in length.
var ErrLengthMismatch = errors.New("values and times differ in length")

// Gradient differentiates values with respect to times, which may be
// unevenly spaced.
//
// Interior points use the second-order central difference for non-uniform
// steps, as a weighted sum of the three neighbours:
//
//	g[i] = a·f[i−1] + b·f[i] + c·f[i+1]
//	a = −hd / (hs·(hs+hd))
//	b = (hd−hs) / (hs·hd)
//	c = hs / (hd·(hs+hd))
//
// with hs = t[i]−t[i−1] and hd = t[i+1]−t[i]. The first and last points use
// first-order one-sided differences. Repeated timestamps produce Inf or NaN,
// which are returned as-is. The weights are applied term by term, so with
// hs = 0 the product a·f[i−1] is NaN whenever f[i−1] is zero.
func Gradient(values, times domain.Series) (domain.Series, error) {
	n := len(values)
	if n != len(times) {
		return nil, fmt.Errorf("gradient: %d values, %d times: %w", n, len(times), ErrLengthMismatch)
	}
	if n < 2 {
		return nil, fmt.Errorf("gradient: need at least 2 points, got %d: %w", n, domain.ErrInsufficientData)
	}

	out := make(domain.Series, n)
	out[0] = (values[1] - values[0]) / (times[1] - times[0])
	out[n-1] = (values[n-1] - values[n-2]) / (times[n-1] - times[n-2])

	for i := 1; i < n-1; i++ {
		hs := times[i] - times[i-1]
		hd := times[i+1] - times[i]
		a := -hd / (hs * (hs + hd))
		b := (hd - hs) / (hs * hd)
		c := hs / (hd * (hs + hd))
		out[i] = a*values[i-1] + b*values[i] + c*values[i+1]
	}
	return out, nil
}

// AxisChain holds one axis' displacement and its derivatives.
type AxisChain struct {
	Displacement domain.Series
	Velocity     domain.Series
	Acceleration domain.Series
}

// Differentiate runs displacement → velocity → acceleration for one axis,
// stopping after the requested order (0, 1 or 2).
func Differentiate(displacement, elapsed domain.Series, order int) (AxisChain, error) {
	c := AxisChain{Displacement: displacement}
	if order < 1 {
		return c, nil
	}
	v, err := Gradient(displacement, elapsed)
	if err != nil {
		return c, fmt.Errorf("velocity: %w", err)
	}
	c.Velocity = v
	if order < 2 {
		return c, nil
	}
	a, err := Gradient(v, elapsed)
	if err != nil {
		return c, fmt.Errorf("acceleration: %w", err)
	}
	c.Acceleration = a
	return c, nil
}
