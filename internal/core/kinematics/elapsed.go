// Package kinematics turns a timestamped track into signed north-south and
// east-west displacement series and differentiates them over a non-uniform
// time axis.
package kinematics

import (
	"fmt"
	"time"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Elapsed converts timestamps into seconds since the first one. Ordering is
// not checked.
func Elapsed(times []time.Time) (domain.Series, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("elapsed: no timestamps: %w", domain.ErrInsufficientData)
	}
	start := times[0]
	out := make(domain.Series, len(times))
	for i, t := range times {
		out[i] = t.Sub(start).Seconds()
	}
	return out, nil
}
