// Package pipeline instantiates tasks for pipeline stages, resolves their
// declared dependencies into concrete records and drives stages through
// submission on the chosen substrate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ash399/litesoph/internal/config"
	"github.com/ash399/litesoph/internal/engine/gpaw"
	"github.com/ash399/litesoph/internal/engine/nwchem"
	"github.com/ash399/litesoph/internal/logger"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

// Manager builds the correct task specialization for an engine and task
// type, with dependencies resolved from the project store.
type Manager struct {
	cfg        *config.Config
	store      store.ProjectStore
	projectDir string
	log        *slog.Logger
}

// NewManager wires a manager for one project. projectDir must be absolute.
func NewManager(cfg *config.Config, st store.ProjectStore, projectDir string, log *slog.Logger) *Manager {
	return &Manager{cfg: cfg, store: st, projectDir: projectDir, log: log}
}

// ProjectDir returns the absolute project root.
func (m *Manager) ProjectDir() string { return m.projectDir }

// NewTask creates the task record and engine specialization for one
// pipeline stage. Dependencies are resolved by task name; unknown engines,
// task types and parameters fail synchronously.
func (m *Manager) NewTask(name string, engine store.EngineName, taskType store.TaskType, params map[string]any, dependsOn []string) (*task.Task, error) {
	deps := make([]*store.TaskRecord, 0, len(dependsOn))
	for _, depName := range dependsOn {
		dep, err := m.store.GetTask(depName)
		if err != nil {
			return nil, fmt.Errorf("resolving dependency %q: %w", depName, err)
		}
		deps = append(deps, dep)
	}

	dir, err := m.mintDirectory(engine, taskType)
	if err != nil {
		return nil, err
	}
	rec := store.NewTaskRecord(name, engine, taskType, dir, params)

	var impl task.EngineTask
	switch engine {
	case store.EngineNWChem:
		impl, err = nwchem.New(m.cfg, m.projectDir, rec, deps)
	case store.EngineGPAW:
		impl, err = gpaw.New(m.cfg, m.projectDir, rec, deps)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", task.ErrSetup, engine)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.SaveTask(rec); err != nil {
		return nil, err
	}
	return task.New(m.projectDir, rec, deps, impl, m.cfg.MPIRun, logger.ForTask(m.log, rec)), nil
}

// mintDirectory allocates a unique working directory for a new task
// instance. The canonical name is <engine>/<type>; when it is taken, an
// increasing integer suffix picks the next free sibling, and the directory
// is created immediately so the name is reserved. Re-running a stage never
// clobbers a prior run.
func (m *Manager) mintDirectory(engine store.EngineName, taskType store.TaskType) (string, error) {
	rel := filepath.Join(string(engine), string(taskType))
	for n := 0; ; n++ {
		candidate := rel
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d", rel, n)
		}
		abs := filepath.Join(m.projectDir, candidate)
		if _, err := os.Stat(abs); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", err
		}
		return candidate, nil
	}
}

// CheckPrerequisite verifies the task's required artifacts on the chosen
// substrate. Remote checks need a reachable session; passing a nil checker
// with remote=true fails immediately.
func (m *Manager) CheckPrerequisite(ctx context.Context, t *task.Task, remote bool, remoteChecker task.ArtifactChecker) error {
	if !remote {
		return t.CheckPrerequisite(ctx, task.LocalArtifacts{Root: m.projectDir})
	}
	if remoteChecker == nil {
		return fmt.Errorf("%w: no remote session for prerequisite check", task.ErrExecution)
	}
	return t.CheckPrerequisite(ctx, remoteChecker)
}
