package postprocess

import (
	"math"
	"testing"
)

func TestSplitOccupied(t *testing.T) {
	states := []EigenState{
		{Index: 1, Occupation: 2, Energy: -1.2},
		{Index: 2, Occupation: 2, Energy: -0.4},
		{Index: 3, Occupation: 0, Energy: 0.1},
	}
	occ, unocc := SplitOccupied(states)
	if len(occ) != 2 || len(unocc) != 1 {
		t.Fatalf("split = %d/%d, want 2/1", len(occ), len(unocc))
	}
	if unocc[0].Index != 3 {
		t.Errorf("unoccupied = %+v", unocc[0])
	}
}

func TestPopulationDiff(t *testing.T) {
	rows := [][]float64{
		{0.0, 2.0, 0.0},
		{0.2, 1.8, 0.2},
		{0.4, 1.5, 0.5},
	}
	diff := PopulationDiff(rows)
	if diff[0][1] != 0 || diff[0][2] != 0 {
		t.Errorf("first row not zeroed: %v", diff[0])
	}
	if diff[2][0] != 0.4 {
		t.Errorf("time column altered: %v", diff[2])
	}
	if math.Abs(diff[2][1]+0.5) > 1e-12 || math.Abs(diff[2][2]-0.5) > 1e-12 {
		t.Errorf("diff row = %v", diff[2])
	}
}

func TestSpectrum_PeaksAtDrivingFrequency(t *testing.T) {
	// Damped oscillation at w0; the transform must peak near w0.
	const w0 = 2.0
	var samples []DipoleSample
	for i := 0; i < 4000; i++ {
		tm := 0.05 * float64(i)
		samples = append(samples, DipoleSample{Time: tm, Dipole: math.Sin(w0*tm) * math.Exp(-0.01*tm)})
	}

	points := Spectrum(samples, 0.01, 0.5, 4.0, 0.01)
	if len(points) == 0 {
		t.Fatal("no spectrum points")
	}
	best := points[0]
	for _, p := range points {
		if p.Strength > best.Strength {
			best = p
		}
	}
	if math.Abs(best.Energy-w0) > 0.1 {
		t.Errorf("peak at %.3f, want near %.1f", best.Energy, w0)
	}
}

func TestSpectrum_DegenerateInputs(t *testing.T) {
	one := []DipoleSample{{Time: 0, Dipole: 0}}
	if pts := Spectrum(one, 0.09, 0, 15, 0.05); pts != nil {
		t.Error("single sample produced a spectrum")
	}
	two := []DipoleSample{{Time: 0, Dipole: 0}, {Time: 0.2, Dipole: 0.1}}
	if pts := Spectrum(two, 0.09, 15, 0, 0.05); pts != nil {
		t.Error("empty energy window produced a spectrum")
	}
}

func TestParseColumns(t *testing.T) {
	text := "# time  dm\n\n0.0 0.000\n0.2 0.001\n"
	rows, err := ParseColumns(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != 0.001 {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseColumns_BadValue(t *testing.T) {
	if _, err := ParseColumns("0.0 abc"); err == nil {
		t.Error("malformed value accepted")
	}
}

func TestFormatColumnsRoundTrip(t *testing.T) {
	in := [][]float64{{0.05, 1.5e-4}, {0.1, 2.5e-4}}
	rows, err := ParseColumns(FormatColumns("energy  strength", in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	for i := range in {
		for j := range in[i] {
			if math.Abs(rows[i][j]-in[i][j]) > 1e-12 {
				t.Errorf("rows[%d][%d] = %v, want %v", i, j, rows[i][j], in[i][j])
			}
		}
	}
}
