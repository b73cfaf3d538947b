package nwchem

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ash399/litesoph/internal/postprocess"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

// eigenPattern matches NWChem orbital analysis lines, e.g.
//
//	Vector   12  Occ=2.000000D+00  E=-3.589042D-01
var eigenPattern = regexp.MustCompile(`Vector\s+(\d+)\s+Occ=([0-9.D+-]+)\s+E=\s*(-?[0-9.D+-]+)`)

// parseEigenStates reads the molecular orbital listing out of an NWChem
// log. Fortran D exponents are normalized before parsing.
func parseEigenStates(logText string) ([]postprocess.EigenState, error) {
	var states []postprocess.EigenState
	for _, m := range eigenPattern.FindAllStringSubmatch(logText, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		occ, err1 := parseFortranFloat(m[2])
		energy, err2 := parseFortranFloat(m[3])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: malformed orbital line %q", task.ErrExtraction, m[0])
		}
		states = append(states, postprocess.EigenState{Index: idx, Occupation: occ, Energy: energy})
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: no molecular orbital analysis found in log", task.ErrExtraction)
	}
	return states, nil
}

func parseFortranFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, "D", "E"), 64)
}

// parseTaggedSeries reads rt_tddft observable lines: whitespace-separated
// floats followed by a '#' comment naming the observable, e.g.
//
//	0.20  0.000021  0.000000  0.000000   # kick_x Dipole moment (a.u.)
func parseTaggedSeries(logText, marker string) ([][]float64, error) {
	var rows [][]float64
	for _, line := range strings.Split(logText, "\n") {
		idx := strings.Index(line, "#")
		if idx < 0 || !strings.Contains(line[idx:], marker) {
			continue
		}
		fields := strings.Fields(strings.TrimSpace(line[:idx]))
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		ok := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				ok = false
				break
			}
			row[i] = v
		}
		if ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no %q series found in log", task.ErrExtraction, marker)
	}
	return rows, nil
}

func (t *Task) readDependencyLog(dep *store.TaskRecord) (string, error) {
	rel, ok := dep.Output["primary_log"]
	if !ok {
		return "", fmt.Errorf("%w: dependency %q declares no primary log", task.ErrExtraction, dep.Name)
	}
	data, err := os.ReadFile(filepath.Join(t.projectDir, rel))
	if err != nil {
		return "", fmt.Errorf("%w: %v", task.ErrExtraction, err)
	}
	return string(data), nil
}

func (t *Task) writeArtifact(name, fileName, content string) error {
	dir := filepath.Join(t.projectDir, t.rec.Directory)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0o644); err != nil {
		return err
	}
	t.rec.AddOutput(name, filepath.Join(t.rec.Directory, fileName))
	return nil
}

// dipoleColumn maps a polarization axis to its column in the dipole
// series (column 0 is time).
func dipoleColumn(axis string) int {
	switch axis {
	case "y":
		return 2
	case "z":
		return 3
	}
	return 1
}

func dipoleSamples(rows [][]float64, axis string) ([]postprocess.DipoleSample, error) {
	col := dipoleColumn(axis)
	samples := make([]postprocess.DipoleSample, 0, len(rows))
	for _, row := range rows {
		if len(row) <= col {
			return nil, fmt.Errorf("%w: dipole series has no %s column", task.ErrExtraction, axis)
		}
		samples = append(samples, postprocess.DipoleSample{Time: row[0], Dipole: row[col]})
	}
	return samples, nil
}

// extractSpectrum derives the photoabsorption spectrum from the dipole
// response of the predecessor propagation.
func (t *Task) extractSpectrum() error {
	if len(t.deps) == 0 {
		return fmt.Errorf("%w: spectrum needs a time-propagation dependency", task.ErrExtraction)
	}
	dep := t.deps[0]
	logText, err := t.readDependencyLog(dep)
	if err != nil {
		return err
	}
	rows, err := parseTaggedSeries(logText, "Dipole")
	if err != nil {
		return err
	}
	axis, err := polarizationAxis(dep.Parameters["polarization"])
	if err != nil {
		axis = "x"
	}
	samples, err := dipoleSamples(rows, axis)
	if err != nil {
		return err
	}

	points := postprocess.Spectrum(samples, t.spec.Damping, t.spec.EMin, t.spec.EMax, t.spec.DeltaE)
	if len(points) == 0 {
		return fmt.Errorf("%w: dipole series too short for a spectrum", task.ErrExtraction)
	}
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p.Energy, p.Strength}
	}
	return t.writeArtifact("spectrum_file", fmt.Sprintf("spec_%s.dat", axis),
		postprocess.FormatColumns("energy  strength", out))
}

// extractMOPopulation derives occupation changes of the orbitals around
// the Fermi level from the propagation log.
func (t *Task) extractMOPopulation() error {
	if len(t.deps) == 0 {
		return fmt.Errorf("%w: mo_population needs a time-propagation dependency", task.ErrExtraction)
	}
	// The propagation is the last dependency; earlier entries are the
	// ground state it restarted from.
	dep := t.deps[len(t.deps)-1]
	logText, err := t.readDependencyLog(dep)
	if err != nil {
		return err
	}

	states, err := parseEigenStates(logText)
	if err != nil {
		return err
	}
	occ, unocc := postprocess.SplitOccupied(states)
	if len(occ) < t.mo.NumOccupied || len(unocc) < t.mo.NumUnoccupied {
		return fmt.Errorf("%w: selected MO window out of range: below HOMO = %d, above LUMO = %d",
			task.ErrExtraction, len(occ), len(unocc))
	}

	series, err := parseTaggedSeries(logText, "MO Occupations")
	if err != nil {
		return err
	}

	homo := len(occ)
	lo := homo - t.mo.NumOccupied + 1
	hi := homo + t.mo.NumUnoccupied
	window := make([][]float64, len(series))
	for i, row := range series {
		if len(row) <= hi {
			return fmt.Errorf("%w: occupation series narrower than the selected window", task.ErrExtraction)
		}
		sel := []float64{row[0]}
		for orbital := lo; orbital <= hi; orbital++ {
			sel = append(sel, row[orbital])
		}
		window[i] = sel
	}

	if err := t.writeArtifact("mo_population_file", "mo_population.dat",
		postprocess.FormatColumns("time  mo populations", window)); err != nil {
		return err
	}
	return t.writeArtifact("mo_population_diff_file", "mo_pop_diff.dat",
		postprocess.FormatColumns("time  mo population change", postprocess.PopulationDiff(window)))
}

// extractPumpProbe produces one spectrum per delayed propagation so the
// delay scan can be assembled into a transient-absorption map.
func (t *Task) extractPumpProbe() error {
	if len(t.deps) == 0 {
		return fmt.Errorf("%w: pump_probe needs delayed propagation dependencies", task.ErrExtraction)
	}
	for _, dep := range t.deps {
		logText, err := t.readDependencyLog(dep)
		if err != nil {
			return err
		}
		rows, err := parseTaggedSeries(logText, "Dipole")
		if err != nil {
			return err
		}
		axis, err := polarizationAxis(dep.Parameters["polarization"])
		if err != nil {
			axis = "x"
		}
		samples, err := dipoleSamples(rows, axis)
		if err != nil {
			return err
		}

		delay := num(dep.Parameters, "delay", 0)
		points := postprocess.Spectrum(samples, t.spec.Damping, t.spec.EMin, t.spec.EMax, t.spec.DeltaE)
		if len(points) == 0 {
			return fmt.Errorf("%w: dipole series of %q too short for a spectrum", task.ErrExtraction, dep.Name)
		}
		out := make([][]float64, len(points))
		for i, p := range points {
			out[i] = []float64{p.Energy, p.Strength}
		}
		name := fmt.Sprintf("spec_delay_%g", delay)
		if err := t.writeArtifact(name, name+".dat",
			postprocess.FormatColumns("energy  strength", out)); err != nil {
			return err
		}
	}
	return nil
}
