// Package task implements the lifecycle core shared by every pipeline
// stage: input creation, job-script assembly, prerequisite checking and
// output inspection. Engine specifics stay behind the EngineTask interface.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ash399/litesoph/internal/store"
)

// EngineTask is the capability set each engine specialization provides.
// The orchestration core depends only on this interface, never on a
// concrete engine type.
type EngineTask interface {
	// RenderInput translates the validated parameters and dependency
	// outputs into engine input text.
	RenderInput() (string, error)

	// JobCommand returns the engine invocation line for the script's
	// execution step. Remote commands must not embed local paths.
	JobCommand(remote bool) (string, error)

	// RequiredArtifacts lists paths, relative to the project root, that
	// must exist on the chosen substrate before submission.
	RequiredArtifacts() []string

	// BootstrapBlock returns the environment-setup text inserted into
	// remote job scripts, or "" when the engine needs none.
	BootstrapBlock() string

	// ExtractResults runs the engine's post-processing over a completed
	// run's output.
	ExtractResults() error
}

// ArtifactChecker answers existence queries for project-relative paths on
// one substrate.
type ArtifactChecker interface {
	Exists(ctx context.Context, relPath string) (bool, error)
}

// LocalArtifacts checks artifacts on the local filesystem under Root.
type LocalArtifacts struct {
	Root string
}

func (l LocalArtifacts) Exists(_ context.Context, relPath string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.Root, relPath))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Task drives one pipeline stage's orchestration: it owns a record, reads
// from its dependency records, and sequences input creation, script
// assembly and result extraction.
type Task struct {
	rec        *store.TaskRecord
	deps       []*store.TaskRecord
	engine     EngineTask
	projectDir string
	launcher   string
	log        *slog.Logger

	scriptName string
	jobScript  string
}

// New wires a task around its record, dependency records and engine
// implementation. projectDir is the absolute project root; launcher is the
// parallel-launcher path for local runs.
func New(projectDir string, rec *store.TaskRecord, deps []*store.TaskRecord, engine EngineTask, launcher string, log *slog.Logger) *Task {
	return &Task{
		rec:        rec,
		deps:       deps,
		engine:     engine,
		projectDir: projectDir,
		launcher:   launcher,
		log:        log,
		scriptName: fmt.Sprintf("ls_job_script_%s.sh", rec.ID),
	}
}

// Record returns the task's persisted state.
func (t *Task) Record() *store.TaskRecord { return t.rec }

// Dependencies returns the predecessor records this task consumes.
func (t *Task) Dependencies() []*store.TaskRecord { return t.deps }

// Dir returns the task's absolute working directory.
func (t *Task) Dir() string {
	return filepath.Join(t.projectDir, t.rec.Directory)
}

// ScriptName returns the per-instance job script file name.
func (t *Task) ScriptName() string { return t.scriptName }

// DoneFile returns the sentinel path relative to the project root.
func (t *Task) DoneFile() string {
	return filepath.Join(t.rec.Directory, DoneFileName)
}

// RequiredArtifacts lists the engine's declared prerequisite paths,
// relative to the project root.
func (t *Task) RequiredArtifacts() []string {
	return t.engine.RequiredArtifacts()
}

// CreateInput renders the engine input from parameters and dependency
// outputs and stores it on the record. Invalid parameters surface as a
// setup error before any external process runs.
func (t *Task) CreateInput() error {
	data, err := t.engine.RenderInput()
	if err != nil {
		return &Error{Op: "CreateInput", Task: t.rec.Name, Err: err}
	}
	t.rec.Input.Data = data
	t.rec.State.InputCreated = true
	t.log.Info("engine input created", "path", t.rec.Input.Path)
	return nil
}

// SaveInput creates the task directory if absent and persists the rendered
// input. The template is only written once fully assembled in memory.
func (t *Task) SaveInput() error {
	if !t.rec.State.InputCreated {
		return &Error{Op: "SaveInput", Task: t.rec.Name, Err: fmt.Errorf("%w: input has not been created", ErrSetup)}
	}
	if err := os.MkdirAll(t.Dir(), 0o755); err != nil {
		return &Error{Op: "SaveInput", Task: t.rec.Name, Err: err}
	}
	dest := filepath.Join(t.projectDir, t.rec.Input.Path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &Error{Op: "SaveInput", Task: t.rec.Name, Err: err}
	}
	if err := os.WriteFile(dest, []byte(t.rec.Input.Data), 0o644); err != nil {
		return &Error{Op: "SaveInput", Task: t.rec.Name, Err: err}
	}
	t.rec.State.InputSaved = true
	t.log.Info("engine input saved", "path", t.rec.Input.Path)
	return nil
}

// CreateJobScript assembles the shell script that runs this task. A
// non-empty remotePath selects the remote layout: the working directory is
// re-rooted under the mirrored tree and the sentinel command is appended.
func (t *Task) CreateJobScript(processes int, remotePath string) (string, error) {
	remote := remotePath != ""
	cmd, err := t.engine.JobCommand(remote)
	if err != nil {
		return "", &Error{Op: "CreateJobScript", Task: t.rec.Name, Err: err}
	}

	spec := ScriptSpec{
		Command:   cmd,
		Processes: processes,
	}
	if remote {
		spec.Remote = true
		spec.WorkDir = remoteJoin(remotePath, t.rec.Directory)
		spec.BootstrapBlock = t.engine.BootstrapBlock()
	} else {
		spec.WorkDir = t.Dir()
		spec.LauncherPath = t.launcher
	}

	t.jobScript = AssembleJobScript(spec)
	return t.jobScript, nil
}

// JobScript returns the last assembled script text.
func (t *Task) JobScript() string { return t.jobScript }

// WriteJobScript persists the assembled script into the task directory and
// returns its absolute path.
func (t *Task) WriteJobScript() (string, error) {
	if t.jobScript == "" {
		return "", &Error{Op: "WriteJobScript", Task: t.rec.Name, Err: fmt.Errorf("%w: job script has not been assembled", ErrSetup)}
	}
	if err := os.MkdirAll(t.Dir(), 0o755); err != nil {
		return "", &Error{Op: "WriteJobScript", Task: t.rec.Name, Err: err}
	}
	path := filepath.Join(t.Dir(), t.scriptName)
	if err := os.WriteFile(path, []byte(t.jobScript), 0o755); err != nil {
		return "", &Error{Op: "WriteJobScript", Task: t.rec.Name, Err: err}
	}
	return path, nil
}

// CheckPrerequisite verifies that every declared required artifact exists
// on the given substrate, and that each dependency task has a recorded
// successful execution. Missing pieces halt submission.
func (t *Task) CheckPrerequisite(ctx context.Context, checker ArtifactChecker) error {
	for _, dep := range t.deps {
		if !dep.Succeeded() {
			return &Error{Op: "CheckPrerequisite", Task: t.rec.Name,
				Err: fmt.Errorf("%w: dependency %q has no successful execution", ErrPrerequisite, dep.Name)}
		}
	}
	for _, rel := range t.engine.RequiredArtifacts() {
		ok, err := checker.Exists(ctx, rel)
		if err != nil {
			return &Error{Op: "CheckPrerequisite", Task: t.rec.Name, Err: err}
		}
		if !ok {
			return &Error{Op: "CheckPrerequisite", Task: t.rec.Name,
				Err: fmt.Errorf("%w: %s", ErrPrerequisite, rel)}
		}
	}
	return nil
}

// CheckOutput converts "no recorded outcome" into an error. A present
// execution record, successful or not, satisfies it; inspecting the return
// code stays the caller's responsibility.
func (t *Task) CheckOutput() error {
	if t.rec.Local == nil && t.rec.Network == nil {
		return &Error{Op: "CheckOutput", Task: t.rec.Name, Err: ErrNotCompleted}
	}
	return nil
}

// ExtractResults runs the engine's post-processing.
func (t *Task) ExtractResults() error {
	if err := t.engine.ExtractResults(); err != nil {
		return &Error{Op: "ExtractResults", Task: t.rec.Name, Err: err}
	}
	return nil
}

// EngineLog returns the contents of the task's primary engine log. It
// requires a completed execution.
func (t *Task) EngineLog() (string, error) {
	if err := t.CheckOutput(); err != nil {
		return "", err
	}
	rel, ok := t.rec.Output["primary_log"]
	if !ok {
		return "", &Error{Op: "EngineLog", Task: t.rec.Name, Err: fmt.Errorf("%w: no primary log declared", ErrExtraction)}
	}
	data, err := os.ReadFile(filepath.Join(t.projectDir, rel))
	if err != nil {
		return "", &Error{Op: "EngineLog", Task: t.rec.Name, Err: fmt.Errorf("%w: %v", ErrExtraction, err)}
	}
	return string(data), nil
}

// RewriteInputPaths replaces the local project root embedded in the
// rendered input with the remote mirror root and re-saves the file, so
// uploaded inputs reference the same paths the artifacts are mirrored to.
func (t *Task) RewriteInputPaths(remoteBase string) error {
	if t.rec.Input.Data == "" {
		return nil
	}
	if !strings.Contains(t.rec.Input.Data, t.projectDir) {
		return nil
	}
	t.rec.Input.Data = strings.ReplaceAll(t.rec.Input.Data, t.projectDir, remoteBase)
	return t.SaveInput()
}

// remoteJoin joins remote paths with forward slashes regardless of the
// local platform.
func remoteJoin(parts ...string) string {
	return strings.Join(parts, "/")
}
