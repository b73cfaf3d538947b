// Package nwchem renders NWChem input decks, builds their invocation
// lines and extracts results from their logs. NWChem is driven through a
// direct input file redirected into the executable.
package nwchem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ash399/litesoph/internal/config"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

// Task implements task.EngineTask for NWChem.
type Task struct {
	rec        *store.TaskRecord
	deps       []*store.TaskRecord
	projectDir string
	enginePath string
	label      string
	data       taskData

	gs   *GroundStateParams
	td   *TDParams
	mo   *MOPopulationParams
	spec *SpectrumParams

	infile  string
	outfile string
}

// New validates the record's parameters for its task type and prepares the
// per-type file layout. Invalid parameters fail here, synchronously.
func New(cfg *config.Config, projectDir string, rec *store.TaskRecord, deps []*store.TaskRecord) (*Task, error) {
	data, ok := taskTable[rec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: nwchem does not implement task type %q", task.ErrSetup, rec.Type)
	}

	t := &Task{
		rec:        rec,
		deps:       deps,
		projectDir: projectDir,
		enginePath: cfg.EnginePath("nwchem"),
		label:      filepath.Base(projectDir),
		data:       data,
	}

	var err error
	switch rec.Type {
	case store.TaskGroundState:
		t.gs, err = groundStateParams(rec.Parameters)
	case store.TaskRTTDDFTDelta, store.TaskRTTDDFTLaser:
		t.td, err = tdParams(rec.Parameters)
	case store.TaskMOPopulation:
		t.mo, err = moPopulationParams(rec.Parameters)
	case store.TaskSpectrum, store.TaskPumpProbe:
		t.spec, err = spectrumParams(rec.Parameters)
	}
	if err != nil {
		return nil, err
	}

	if data.simulation {
		t.infile = data.fileName + inputExt
		t.outfile = data.fileName + logExt
		rec.Input.Path = filepath.Join(rec.Directory, t.infile)
		rec.AddOutput("primary_log", filepath.Join(rec.Directory, t.outfile))
	}
	return t, nil
}

// RenderInput translates the validated parameters into an NWChem input
// deck. Post-processing types render nothing; they consume predecessor
// logs directly.
func (t *Task) RenderInput() (string, error) {
	switch t.rec.Type {
	case store.TaskGroundState:
		// NWChem does not create a missing permanent_dir; later stages
		// restart from the wavefunction files written there.
		if err := os.MkdirAll(filepath.Join(t.projectDir, restartDir), 0o755); err != nil {
			return "", err
		}
		return t.renderGroundState(), nil
	case store.TaskRTTDDFTDelta, store.TaskRTTDDFTLaser:
		return t.renderTimePropagation()
	}
	return "", nil
}

func (t *Task) renderGroundState() string {
	var b strings.Builder
	fmt.Fprintf(&b, "echo\n")
	fmt.Fprintf(&b, "start %s\n", t.label)
	fmt.Fprintf(&b, "permanent_dir %s\n\n", filepath.Join(t.projectDir, restartDir))
	fmt.Fprintf(&b, "geometry units angstrom\n  load %s\nend\n\n", filepath.Join(t.projectDir, geometryFile))
	fmt.Fprintf(&b, "basis\n  * library %s\nend\n\n", t.gs.Basis)
	fmt.Fprintf(&b, "dft\n")
	fmt.Fprintf(&b, "  xc %s\n", t.gs.XC)
	fmt.Fprintf(&b, "  iterations %d\n", t.gs.MaxIter)
	fmt.Fprintf(&b, "  convergence energy %.0e\n", t.gs.EnergyConv)
	fmt.Fprintf(&b, "  convergence density %.0e\n", t.gs.DensityConv)
	fmt.Fprintf(&b, "end\n\n")
	fmt.Fprintf(&b, "task dft energy\n")
	return b.String()
}

func (t *Task) renderTimePropagation() (string, error) {
	if len(t.deps) == 0 {
		return "", fmt.Errorf("%w: time propagation needs a ground-state dependency", task.ErrSetup)
	}
	basis := str(t.deps[0].Parameters, "basis", "")
	if basis == "" {
		return "", fmt.Errorf("%w: dependency %q declares no basis", task.ErrSetup, t.deps[0].Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "echo\n")
	fmt.Fprintf(&b, "restart %s\n", t.label)
	fmt.Fprintf(&b, "permanent_dir %s\n\n", filepath.Join(t.projectDir, restartDir))
	fmt.Fprintf(&b, "geometry units angstrom\n  load %s\nend\n\n", filepath.Join(t.projectDir, geometryFile))
	fmt.Fprintf(&b, "basis\n  * library %s\nend\n\n", basis)
	fmt.Fprintf(&b, "rt_tddft\n")
	fmt.Fprintf(&b, "  tmax %.2f\n", t.td.TMax)
	fmt.Fprintf(&b, "  dt %.2f\n", t.td.DT)

	if len(t.td.Lasers) > 0 {
		for i, laser := range t.td.Lasers {
			fmt.Fprintf(&b, "  field \"%d_%s\"\n", i, laser.Polarization)
			fmt.Fprintf(&b, "    type %s\n", laser.Type)
			if laser.Type == "gaussian" {
				fmt.Fprintf(&b, "    frequency %g\n", laser.Frequency)
				fmt.Fprintf(&b, "    center %g\n", laser.Center)
				fmt.Fprintf(&b, "    width %g\n", laser.Width)
			}
			fmt.Fprintf(&b, "    polarization %s\n", laser.Polarization)
			fmt.Fprintf(&b, "    max %g\n", laser.Strength)
			fmt.Fprintf(&b, "  end\n")
		}
	} else {
		fmt.Fprintf(&b, "  field \"kick_%s\"\n", t.td.Polarization)
		fmt.Fprintf(&b, "    type delta\n")
		fmt.Fprintf(&b, "    polarization %s\n", t.td.Polarization)
		fmt.Fprintf(&b, "    max %g\n", t.td.Strength)
		fmt.Fprintf(&b, "  end\n")
	}

	fmt.Fprintf(&b, "  print %s\n", strings.Join(printTargets(t.td.Properties), " "))
	fmt.Fprintf(&b, "end\n\n")
	fmt.Fprintf(&b, "task dft rt_tddft\n")
	return b.String(), nil
}

// printTargets maps requested pipeline properties onto rt_tddft print
// keywords.
func printTargets(properties []string) []string {
	var p []string
	for _, prop := range properties {
		switch prop {
		case "spectrum":
			p = append(p, "dipole")
		case "mo_population":
			p = append(p, "moocc")
		}
	}
	if len(p) == 0 {
		p = append(p, "dipole")
	}
	return p
}

// JobCommand returns the direct-redirection invocation line. Remote
// scripts rely on the bootstrap block to put nwchem on PATH, so the bare
// name is used there.
func (t *Task) JobCommand(remote bool) (string, error) {
	if !t.data.simulation {
		return "", fmt.Errorf("%w: %s is a post-processing task with no engine invocation", task.ErrSetup, t.rec.Type)
	}
	engine := t.enginePath
	if remote {
		engine = "nwchem"
	}
	return fmt.Sprintf("%s %s > %s", engine, t.infile, t.outfile), nil
}

// RequiredArtifacts lists the static prerequisites of this task type plus
// the predecessor logs a post-processing type consumes.
func (t *Task) RequiredArtifacts() []string {
	req := append([]string(nil), t.data.required...)
	if t.rec.Type.PostProcessing() {
		for _, dep := range t.deps {
			if log, ok := dep.Output["primary_log"]; ok {
				req = append(req, log)
			}
		}
	}
	return req
}

// BootstrapBlock returns the environment-setup text for remote scripts.
func (t *Task) BootstrapBlock() string {
	return strings.Join([]string{
		"##### Please provide the executable path or environment of NWChem or load the module",
		"",
		"#eval \"$(conda shell.bash hook)\"",
		"#conda activate <environment name>",
		"",
		"#module load nwchem",
	}, "\n")
}

// ExtractResults dispatches the post-processing step for analysis task
// types. Simulation types have nothing to extract beyond their logs.
func (t *Task) ExtractResults() error {
	switch t.rec.Type {
	case store.TaskSpectrum:
		return t.extractSpectrum()
	case store.TaskMOPopulation:
		return t.extractMOPopulation()
	case store.TaskPumpProbe:
		return t.extractPumpProbe()
	}
	return nil
}
