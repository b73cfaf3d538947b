package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/submit"
	"github.com/ash399/litesoph/internal/task"
)

// Runner drives stages through their full lifecycle on one substrate.
// Local submission blocks until the engine exits; remote submission
// returns after launch, and FinishRemote observes completion by polling.
type Runner struct {
	manager *Manager
	store   store.ProjectStore
	local   *submit.Local
	remote  *submit.Remote // nil when running locally
	log     *slog.Logger
}

// NewRunner wires a runner. remote may be nil for local-only operation.
func NewRunner(m *Manager, st store.ProjectStore, local *submit.Local, remote *submit.Remote, log *slog.Logger) *Runner {
	return &Runner{manager: m, store: st, local: local, remote: remote, log: log}
}

// RunStage takes one task from input creation through submission. For
// post-processing types the "run" is the in-process extraction, with its
// outcome recorded like a local execution so batch inspection works the
// same way for every stage.
func (r *Runner) RunStage(ctx context.Context, t *task.Task, processes int) error {
	rec := t.Record()

	if rec.Type.PostProcessing() {
		return r.runExtraction(ctx, t)
	}

	if err := t.CreateInput(); err != nil {
		return err
	}
	if err := t.SaveInput(); err != nil {
		return err
	}

	if r.remote != nil {
		return r.runRemote(ctx, t, processes)
	}
	return r.runLocal(ctx, t, processes)
}

func (r *Runner) runLocal(ctx context.Context, t *task.Task, processes int) error {
	rec := t.Record()
	if err := r.manager.CheckPrerequisite(ctx, t, false, nil); err != nil {
		return err
	}
	if _, err := t.CreateJobScript(processes, ""); err != nil {
		return err
	}
	if _, err := t.WriteJobScript(); err != nil {
		return err
	}
	if err := r.local.Run(ctx, rec, t.Dir(), t.ScriptName()); err != nil {
		return err
	}
	return r.store.SaveTask(rec)
}

func (r *Runner) runRemote(ctx context.Context, t *task.Task, processes int) error {
	rec := t.Record()

	// Inputs are staged from the local tree, so they must exist locally
	// before upload.
	if err := r.manager.CheckPrerequisite(ctx, t, false, nil); err != nil {
		return err
	}
	if err := t.RewriteInputPaths(r.remote.BasePath()); err != nil {
		return err
	}
	if _, err := t.CreateJobScript(processes, r.remote.BasePath()); err != nil {
		return err
	}
	if _, err := t.WriteJobScript(); err != nil {
		return err
	}
	if err := r.remote.Prepare(ctx, t); err != nil {
		return err
	}
	if err := r.manager.CheckPrerequisite(ctx, t, true, r.remote); err != nil {
		return err
	}
	if err := r.remote.Run(ctx, t); err != nil {
		return err
	}
	return r.store.SaveTask(rec)
}

// FinishRemote waits for the completion sentinel, fetches declared
// outputs into the local tree and persists the record.
func (r *Runner) FinishRemote(ctx context.Context, t *task.Task) error {
	if r.remote == nil {
		return fmt.Errorf("%w: no remote substrate configured", task.ErrExecution)
	}
	if err := r.remote.Wait(ctx, t); err != nil {
		return err
	}
	if err := r.remote.FetchOutputs(ctx, t); err != nil {
		return err
	}
	return r.store.SaveTask(t.Record())
}

// runExtraction executes a post-processing stage in process. Extraction
// failures are recorded into the local execution slot and also returned,
// so a caller can retry with adjusted parameters.
func (r *Runner) runExtraction(ctx context.Context, t *task.Task) error {
	rec := t.Record()
	if err := r.manager.CheckPrerequisite(ctx, t, false, nil); err != nil {
		return err
	}
	if err := t.ExtractResults(); err != nil {
		rec.Local = &store.ExecutionResult{ReturnCode: 1, Stderr: err.Error()}
		if saveErr := r.store.SaveTask(rec); saveErr != nil {
			return saveErr
		}
		return err
	}
	rec.Local = &store.ExecutionResult{ReturnCode: 0}
	return r.store.SaveTask(rec)
}
