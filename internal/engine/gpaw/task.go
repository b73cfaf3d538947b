// Package gpaw drives GPAW through rendered python control scripts: the
// engine is invoked via its interpreter rather than an input-file
// redirection, and the propagation writes its dipole series to a data
// file the spectrum stage consumes.
package gpaw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ash399/litesoph/internal/config"
	"github.com/ash399/litesoph/internal/postprocess"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

const geometryFile = "coordinate.xyz"

// Task implements task.EngineTask for GPAW.
type Task struct {
	rec        *store.TaskRecord
	deps       []*store.TaskRecord
	projectDir string
	pythonPath string

	gs   *GroundStateParams
	td   *TDParams
	spec *SpectrumParams

	script string
}

// New validates the record's parameters for its task type. Invalid
// parameters fail here, synchronously.
func New(cfg *config.Config, projectDir string, rec *store.TaskRecord, deps []*store.TaskRecord) (*Task, error) {
	t := &Task{
		rec:        rec,
		deps:       deps,
		projectDir: projectDir,
		pythonPath: cfg.Python,
	}

	var err error
	switch rec.Type {
	case store.TaskGroundState:
		t.gs, err = groundStateParams(rec.Parameters)
		t.script = "gs.py"
	case store.TaskRTTDDFTDelta:
		t.td, err = tdParams(rec.Parameters)
		t.script = "td.py"
	case store.TaskSpectrum:
		t.spec, err = spectrumParams(rec.Parameters)
	default:
		return nil, fmt.Errorf("%w: gpaw does not implement task type %q", task.ErrSetup, rec.Type)
	}
	if err != nil {
		return nil, err
	}

	if t.script != "" {
		rec.Input.Path = filepath.Join(rec.Directory, t.script)
	}
	switch rec.Type {
	case store.TaskGroundState:
		rec.AddOutput("primary_log", filepath.Join(rec.Directory, "gs.out"))
		rec.AddOutput("restart_file", filepath.Join(rec.Directory, "gs.gpw"))
	case store.TaskRTTDDFTDelta:
		rec.AddOutput("primary_log", filepath.Join(rec.Directory, "tdx.out"))
		rec.AddOutput("dipole_file", filepath.Join(rec.Directory, "dm.dat"))
		rec.AddOutput("restart_file", filepath.Join(rec.Directory, "td.gpw"))
	}
	return t, nil
}

// RenderInput produces the python control script for the task type.
func (t *Task) RenderInput() (string, error) {
	switch t.rec.Type {
	case store.TaskGroundState:
		return t.renderGroundState(), nil
	case store.TaskRTTDDFTDelta:
		return t.renderTimePropagation()
	}
	return "", nil
}

func (t *Task) renderGroundState() string {
	var b strings.Builder
	b.WriteString("from ase.io import read, write\n")
	b.WriteString("from ase import Atoms\n")
	b.WriteString("from ase.parallel import paropen\n")
	b.WriteString("from gpaw.poisson import PoissonSolver\n")
	b.WriteString("from gpaw.eigensolvers import CG\n")
	b.WriteString("from gpaw import GPAW, FermiDirac\n")
	b.WriteString("from gpaw import Mixer, MixerSum, MixerDif\n")
	b.WriteString("from gpaw.lcao.eigensolver import DirectLCAO\n\n")
	b.WriteString("# Molecule or nanostructure\n")
	fmt.Fprintf(&b, "layer = read('%s')\n", filepath.Join(t.projectDir, geometryFile))
	fmt.Fprintf(&b, "layer.center(vacuum=%g)\n\n", t.gs.Vacuum)
	b.WriteString("# Ground-state calculation\n")
	fmt.Fprintf(&b, "calc = GPAW(mode='%s',\n", t.gs.Mode)
	fmt.Fprintf(&b, "            h=%g,\n", t.gs.Spacing)
	fmt.Fprintf(&b, "            basis='%s',\n", t.gs.Basis)
	fmt.Fprintf(&b, "            xc='%s',\n", t.gs.XC)
	fmt.Fprintf(&b, "            nbands=%d,\n", t.gs.NBands)
	b.WriteString("            setups={'default': 'paw'},\n")
	b.WriteString("            occupations=FermiDirac(width=0.07),\n")
	b.WriteString("            mixer=Mixer(0.02, 5, 1.0),\n")
	b.WriteString("            maxiter=2500,\n")
	b.WriteString("            convergence={'density': 1e-12, 'bands': -20},\n")
	b.WriteString("            txt='gs.out')\n")
	b.WriteString("layer.calc = calc\n")
	b.WriteString("energy = layer.get_potential_energy()\n")
	b.WriteString("calc.write('gs.gpw', mode='all')\n")
	return b.String()
}

func (t *Task) renderTimePropagation() (string, error) {
	restart, err := t.dependencyOutput(store.TaskGroundState, "restart_file")
	if err != nil {
		return "", err
	}

	kick := [3]float64{}
	for i, c := range t.td.Polarization {
		kick[i] = t.td.Strength * float64(c)
	}

	var b strings.Builder
	b.WriteString("# Time-propagation calculation\n")
	b.WriteString("from gpaw.lcaotddft import LCAOTDDFT\n")
	b.WriteString("from gpaw.lcaotddft.dipolemomentwriter import DipoleMomentWriter\n\n")
	b.WriteString("# Read converged ground-state file\n")
	fmt.Fprintf(&b, "td_calc = LCAOTDDFT('%s', txt='tdx.out')\n\n", filepath.Join(t.projectDir, restart))
	b.WriteString("# Attach any data recording or analysis tools\n")
	b.WriteString("DipoleMomentWriter(td_calc, 'dm.dat')\n\n")
	b.WriteString("# Kick\n")
	fmt.Fprintf(&b, "td_calc.absorption_kick([%g, %g, %g])\n\n", kick[0], kick[1], kick[2])
	b.WriteString("# Propagate\n")
	fmt.Fprintf(&b, "td_calc.propagate(%g, %d)\n\n", t.td.TimeStep, t.td.NumSteps)
	b.WriteString("# Save the state for restarting later\n")
	b.WriteString("td_calc.write('td.gpw', mode='all')\n")
	return b.String(), nil
}

// JobCommand returns the interpreter-driven invocation line.
func (t *Task) JobCommand(remote bool) (string, error) {
	if t.script == "" {
		return "", fmt.Errorf("%w: %s is a post-processing task with no engine invocation", task.ErrSetup, t.rec.Type)
	}
	python := t.pythonPath
	if remote {
		python = "python3"
	}
	return fmt.Sprintf("%s %s", python, t.script), nil
}

// RequiredArtifacts lists the geometry for simulations plus the
// predecessor artifacts this type consumes.
func (t *Task) RequiredArtifacts() []string {
	var req []string
	switch t.rec.Type {
	case store.TaskGroundState:
		req = append(req, geometryFile)
	case store.TaskRTTDDFTDelta:
		req = append(req, geometryFile)
		if restart, err := t.dependencyOutput(store.TaskGroundState, "restart_file"); err == nil {
			req = append(req, restart)
		}
	case store.TaskSpectrum:
		if dm, err := t.dependencyOutput(store.TaskRTTDDFTDelta, "dipole_file"); err == nil {
			req = append(req, dm)
		}
	}
	return req
}

// BootstrapBlock returns the environment-setup text for remote scripts.
func (t *Task) BootstrapBlock() string {
	return strings.Join([]string{
		"##### Please provide the python environment that carries gpaw and ase",
		"",
		"#eval \"$(conda shell.bash hook)\"",
		"#conda activate <environment name>",
		"",
		"#module load gpaw",
	}, "\n")
}

// ExtractResults computes the photoabsorption spectrum from the
// propagation's dipole file.
func (t *Task) ExtractResults() error {
	if t.rec.Type != store.TaskSpectrum {
		return nil
	}
	rel, err := t.dependencyOutput(store.TaskRTTDDFTDelta, "dipole_file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(t.projectDir, rel))
	if err != nil {
		return fmt.Errorf("%w: %v", task.ErrExtraction, err)
	}
	rows, err := postprocess.ParseColumns(string(data))
	if err != nil {
		return fmt.Errorf("%w: %v", task.ErrExtraction, err)
	}

	// DipoleMomentWriter rows are time, norm, dmx, dmy, dmz; take the
	// strongest kick component.
	axis := 0
	if len(t.deps) > 0 {
		if td, err := tdParams(t.deps[len(t.deps)-1].Parameters); err == nil {
			for i, c := range td.Polarization {
				if c != 0 {
					axis = i
					break
				}
			}
		}
	}
	samples := make([]postprocess.DipoleSample, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			return fmt.Errorf("%w: dipole file has fewer than 5 columns", task.ErrExtraction)
		}
		samples = append(samples, postprocess.DipoleSample{Time: row[0], Dipole: row[2+axis]})
	}

	points := postprocess.Spectrum(samples, t.spec.Width, t.spec.EMin, t.spec.EMax, t.spec.DeltaE)
	if len(points) == 0 {
		return fmt.Errorf("%w: dipole series too short for a spectrum", task.ErrExtraction)
	}
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p.Energy, p.Strength}
	}

	dir := filepath.Join(t.projectDir, t.rec.Directory)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	body := postprocess.FormatColumns("energy  strength", out)
	if err := os.WriteFile(filepath.Join(dir, "spec.dat"), []byte(body), 0o644); err != nil {
		return err
	}
	t.rec.AddOutput("spectrum_file", filepath.Join(t.rec.Directory, "spec.dat"))
	return nil
}

// dependencyOutput finds an artifact of the first dependency of the given
// type, falling back to any dependency that declares it.
func (t *Task) dependencyOutput(depType store.TaskType, artifact string) (string, error) {
	for _, dep := range t.deps {
		if dep.Type == depType {
			if rel, ok := dep.Output[artifact]; ok {
				return rel, nil
			}
		}
	}
	for _, dep := range t.deps {
		if rel, ok := dep.Output[artifact]; ok {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: no dependency declares %q", task.ErrSetup, artifact)
}
