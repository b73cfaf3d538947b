package task

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ash399/litesoph/internal/store"
)

// fakeEngine is a minimal EngineTask for lifecycle tests.
type fakeEngine struct {
	input     string
	inputErr  error
	command   string
	required  []string
	bootstrap string
	extractFn func() error
}

func (f *fakeEngine) RenderInput() (string, error)     { return f.input, f.inputErr }
func (f *fakeEngine) JobCommand(bool) (string, error)  { return f.command, nil }
func (f *fakeEngine) RequiredArtifacts() []string      { return f.required }
func (f *fakeEngine) BootstrapBlock() string           { return f.bootstrap }
func (f *fakeEngine) ExtractResults() error {
	if f.extractFn != nil {
		return f.extractFn()
	}
	return nil
}

func newTestTask(t *testing.T, eng *fakeEngine, deps ...*store.TaskRecord) (*Task, string) {
	t.Helper()
	projectDir := t.TempDir()
	rec := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)
	rec.Input.Path = filepath.Join(rec.Directory, "gs.nwi")
	log := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	return New(projectDir, rec, deps, eng, "mpirun", log), projectDir
}

func TestTask_CreateAndSaveInput(t *testing.T) {
	eng := &fakeEngine{input: "start gs\ntask dft energy"}
	tk, projectDir := newTestTask(t, eng)

	if err := tk.CreateInput(); err != nil {
		t.Fatalf("CreateInput: %v", err)
	}
	rec := tk.Record()
	if !rec.State.InputCreated {
		t.Error("InputCreated flag not set")
	}
	if rec.State.InputSaved {
		t.Error("InputSaved set before SaveInput")
	}

	if err := tk.SaveInput(); err != nil {
		t.Fatalf("SaveInput: %v", err)
	}
	if !rec.State.InputSaved {
		t.Error("InputSaved flag not set")
	}
	data, err := os.ReadFile(filepath.Join(projectDir, rec.Input.Path))
	if err != nil {
		t.Fatalf("reading saved input: %v", err)
	}
	if string(data) != eng.input {
		t.Errorf("saved input = %q, want %q", data, eng.input)
	}
}

func TestTask_SaveInputBeforeCreateFails(t *testing.T) {
	tk, _ := newTestTask(t, &fakeEngine{input: "x"})
	err := tk.SaveInput()
	if !IsSetup(err) {
		t.Errorf("expected setup error, got %v", err)
	}
}

func TestTask_CreateInputSurfacesSetupError(t *testing.T) {
	eng := &fakeEngine{inputErr: ErrSetup}
	tk, _ := newTestTask(t, eng)
	err := tk.CreateInput()
	if !IsSetup(err) {
		t.Errorf("expected setup error, got %v", err)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Op != "CreateInput" {
		t.Errorf("expected wrapped CreateInput error, got %v", err)
	}
}

func TestTask_WriteJobScript(t *testing.T) {
	eng := &fakeEngine{input: "x", command: "nwchem gs.nwi > gs.nwo"}
	tk, _ := newTestTask(t, eng)

	if _, err := tk.WriteJobScript(); !IsSetup(err) {
		t.Errorf("expected setup error before assembly, got %v", err)
	}

	script, err := tk.CreateJobScript(1, "")
	if err != nil {
		t.Fatalf("CreateJobScript: %v", err)
	}
	if !strings.HasPrefix(script, "#!/bin/bash\n") {
		t.Errorf("script missing interpreter directive:\n%s", script)
	}

	path, err := tk.WriteJobScript()
	if err != nil {
		t.Fatalf("WriteJobScript: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat script: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("script is not executable")
	}
	if filepath.Base(path) != tk.ScriptName() {
		t.Errorf("script written as %s, want %s", filepath.Base(path), tk.ScriptName())
	}
}

func TestTask_RemoteJobScriptUsesRemotePaths(t *testing.T) {
	eng := &fakeEngine{input: "x", command: "nwchem gs.nwi > gs.nwo", bootstrap: "#module load nwchem"}
	tk, projectDir := newTestTask(t, eng)

	script, err := tk.CreateJobScript(1, "/scratch/user/water")
	if err != nil {
		t.Fatalf("CreateJobScript: %v", err)
	}
	if !strings.Contains(script, "cd /scratch/user/water/nwchem/ground_state;") {
		t.Errorf("remote script not rooted under the mirrored tree:\n%s", script)
	}
	if strings.Contains(script, projectDir) {
		t.Error("remote script embeds a local path")
	}
	if !strings.HasSuffix(script, sentinelCommand) {
		t.Error("remote script does not end with the sentinel command")
	}
	if !strings.Contains(script, "#module load nwchem") {
		t.Error("remote script missing bootstrap block")
	}
}

func TestTask_CheckPrerequisite(t *testing.T) {
	dep := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)
	eng := &fakeEngine{required: []string{"coordinate.xyz"}}
	tk, projectDir := newTestTask(t, eng, dep)
	checker := LocalArtifacts{Root: projectDir}
	ctx := context.Background()

	// Dependency never ran.
	err := tk.CheckPrerequisite(ctx, checker)
	if !IsPrerequisite(err) {
		t.Fatalf("expected prerequisite error for unrun dependency, got %v", err)
	}

	// Dependency ran and failed.
	dep.Local = &store.ExecutionResult{ReturnCode: 2}
	if err := tk.CheckPrerequisite(ctx, checker); !IsPrerequisite(err) {
		t.Fatalf("expected prerequisite error for failed dependency, got %v", err)
	}

	// Dependency succeeded but the artifact is absent.
	dep.Local = &store.ExecutionResult{ReturnCode: 0}
	err = tk.CheckPrerequisite(ctx, checker)
	if !IsPrerequisite(err) {
		t.Fatalf("expected prerequisite error for missing artifact, got %v", err)
	}
	if !strings.Contains(err.Error(), "coordinate.xyz") {
		t.Errorf("error does not name the missing artifact: %v", err)
	}

	// Everything in place.
	if err := os.WriteFile(filepath.Join(projectDir, "coordinate.xyz"), []byte("3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tk.CheckPrerequisite(ctx, checker); err != nil {
		t.Fatalf("expected prerequisites satisfied, got %v", err)
	}
}

func TestTask_CheckOutput(t *testing.T) {
	tk, _ := newTestTask(t, &fakeEngine{})
	if err := tk.CheckOutput(); !IsNotCompleted(err) {
		t.Errorf("expected not-completed error, got %v", err)
	}

	// A failed run still counts as a recorded outcome.
	tk.Record().Local = &store.ExecutionResult{ReturnCode: 1}
	if err := tk.CheckOutput(); err != nil {
		t.Errorf("expected recorded outcome to satisfy CheckOutput, got %v", err)
	}
}

func TestTask_EngineLog(t *testing.T) {
	tk, projectDir := newTestTask(t, &fakeEngine{})
	rec := tk.Record()

	if _, err := tk.EngineLog(); !IsNotCompleted(err) {
		t.Fatalf("expected not-completed error before any run, got %v", err)
	}

	rec.Local = &store.ExecutionResult{ReturnCode: 0}
	if _, err := tk.EngineLog(); !IsExtraction(err) {
		t.Fatalf("expected extraction error without a declared log, got %v", err)
	}

	rec.AddOutput("primary_log", "nwchem/ground_state/gs.nwo")
	dest := filepath.Join(projectDir, "nwchem/ground_state/gs.nwo")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("Total DFT energy"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := tk.EngineLog()
	if err != nil {
		t.Fatalf("EngineLog: %v", err)
	}
	if text != "Total DFT energy" {
		t.Errorf("EngineLog = %q", text)
	}
}

func TestTask_RewriteInputPaths(t *testing.T) {
	eng := &fakeEngine{}
	tk, projectDir := newTestTask(t, eng)
	rec := tk.Record()
	rec.Input.Data = "permanent_dir " + filepath.Join(projectDir, "nwchem/restart") + "\n"
	rec.State.InputCreated = true

	if err := tk.RewriteInputPaths("/scratch/user/water"); err != nil {
		t.Fatalf("RewriteInputPaths: %v", err)
	}
	if strings.Contains(rec.Input.Data, projectDir) {
		t.Errorf("local project root survived rewrite: %q", rec.Input.Data)
	}
	if !strings.Contains(rec.Input.Data, "/scratch/user/water/nwchem/restart") {
		t.Errorf("mirror root not substituted: %q", rec.Input.Data)
	}
	// The rewritten input is re-saved.
	data, err := os.ReadFile(filepath.Join(projectDir, rec.Input.Path))
	if err != nil {
		t.Fatalf("reading rewritten input: %v", err)
	}
	if string(data) != rec.Input.Data {
		t.Error("persisted input does not match the rewritten data")
	}
}

func TestTask_ExtractResultsWrapsEngineError(t *testing.T) {
	eng := &fakeEngine{extractFn: func() error { return ErrExtraction }}
	tk, _ := newTestTask(t, eng)
	err := tk.ExtractResults()
	if !IsExtraction(err) {
		t.Errorf("expected extraction error, got %v", err)
	}
}
