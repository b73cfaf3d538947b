// Package postprocess holds the numeric helpers shared by engine result
// extraction: orbital occupation analysis, population differences and the
// photoabsorption spectrum transform.
package postprocess

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EigenState is one molecular orbital: its index, occupation number and
// energy in atomic units.
type EigenState struct {
	Index      int
	Occupation float64
	Energy     float64
}

// SplitOccupied partitions eigenstates into occupied and unoccupied sets.
// Any nonzero occupation counts as occupied.
func SplitOccupied(states []EigenState) (occ, unocc []EigenState) {
	for _, s := range states {
		if s.Occupation > 0 {
			occ = append(occ, s)
		} else {
			unocc = append(unocc, s)
		}
	}
	return occ, unocc
}

// PopulationDiff subtracts the first sample's populations from every row,
// turning absolute occupations into occupation changes over time. The
// first column (time) is preserved. The input must have at least one row.
func PopulationDiff(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	base := rows[0]
	for i, row := range rows {
		diff := make([]float64, len(row))
		diff[0] = row[0]
		for j := 1; j < len(row); j++ {
			diff[j] = row[j] - base[j]
		}
		out[i] = diff
	}
	return out
}

// DipoleSample is one point of a dipole-moment time series, in atomic
// units.
type DipoleSample struct {
	Time   float64
	Dipole float64
}

// SpectrumPoint is one point of a photoabsorption spectrum.
type SpectrumPoint struct {
	Energy   float64
	Strength float64
}

// Spectrum computes the photoabsorption spectrum of a dipole response via
// a damped sine transform: S(w) ~ w * sum_t (d(t)-d(0)) sin(wt) e^(-yt) dt.
// damping is the decay constant y; the energy grid runs [eMin, eMax] with
// step dE, all in the units of the input series.
func Spectrum(samples []DipoleSample, damping, eMin, eMax, dE float64) []SpectrumPoint {
	if len(samples) < 2 || dE <= 0 || eMax <= eMin {
		return nil
	}
	static := samples[0].Dipole

	var points []SpectrumPoint
	for e := eMin; e <= eMax+1e-12; e += dE {
		var sum float64
		for i := 1; i < len(samples); i++ {
			dt := samples[i].Time - samples[i-1].Time
			t := samples[i].Time - samples[0].Time
			induced := samples[i].Dipole - static
			sum += induced * math.Sin(e*t) * math.Exp(-damping*t) * dt
		}
		points = append(points, SpectrumPoint{Energy: e, Strength: e * sum})
	}
	return points
}

// ParseColumns parses whitespace-separated numeric columns, skipping blank
// lines and '#' comments.
func ParseColumns(text string) ([][]float64, error) {
	var rows [][]float64
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", i+1, f, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FormatColumns renders numeric rows as a tab-separated .dat body with an
// optional '#' header line.
func FormatColumns(header string, rows [][]float64) string {
	var b strings.Builder
	if header != "" {
		b.WriteString("# " + header + "\n")
	}
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(strconv.FormatFloat(v, 'e', 8, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
