// Package csvexport writes kinematics series as comma-separated rows.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Header is the fixed column order.
var Header = []string{
	"elapsed_time_s",
	"ns_displacement_km",
	"ew_displacement_km",
	"ns_velocity_kms",
	"ew_velocity_kms",
	"ns_acceleration_kms2",
	"ew_acceleration_kms2",
}

// Writer implements ports.TableWriter.
type Writer struct{}

// NewWriter creates a CSV table writer.
func NewWriter() *Writer { return &Writer{} }

// WriteTable writes one header row and one row per retained sample. Series
// that were not computed, and NaN values, are empty cells.
func (Writer) WriteTable(ctx context.Context, k *domain.Kinematics, w io.Writer) error {
	cols := []domain.Series{
		k.Elapsed,
		k.DisplacementNS, k.DisplacementEW,
		k.VelocityNS, k.VelocityEW,
		k.AccelerationNS, k.AccelerationEW,
	}
	n := len(k.Elapsed)
	for i, c := range cols {
		if c != nil && len(c) != n {
			return fmt.Errorf("column %s: %d rows, want %d", Header[i], len(c), n)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for r := 0; r < n; r++ {
		if r%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for i, c := range cols {
			row[i] = cell(c, r)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(c domain.Series, r int) string {
	if c == nil || math.IsNaN(c[r]) {
		return ""
	}
	return strconv.FormatFloat(c[r], 'g', -1, 64)
}
