// Package store contains the project-state layer for litesoph.
package store

import (
	"time"

	"github.com/google/uuid"
)

// EngineName identifies the external compute program a task drives.
type EngineName string

const (
	EngineNWChem EngineName = "nwchem"
	EngineGPAW   EngineName = "gpaw"
)

// TaskType is the pipeline-stage kind a task represents.
type TaskType string

const (
	TaskGroundState  TaskType = "ground_state"
	TaskRTTDDFTDelta TaskType = "rt_tddft_delta"
	TaskRTTDDFTLaser TaskType = "rt_tddft_laser"
	TaskSpectrum     TaskType = "spectrum"
	TaskMOPopulation TaskType = "mo_population"
	TaskPumpProbe    TaskType = "pump_probe"
)

// PostProcessing reports whether the task type only analyses predecessor
// output instead of launching an external engine process.
func (t TaskType) PostProcessing() bool {
	switch t {
	case TaskSpectrum, TaskMOPopulation, TaskPumpProbe:
		return true
	}
	return false
}

// InputFile holds the rendered engine input. Path is relative to the
// project root; Data is the full template text, assembled in memory
// before it is ever persisted.
type InputFile struct {
	Path string `json:"path,omitempty"`
	Data string `json:"data,omitempty"`
}

// TaskState tracks how far a task has progressed through input preparation.
type TaskState struct {
	InputCreated bool `json:"input_created"`
	InputSaved   bool `json:"input_saved"`
}

// ExecutionResult records the outcome of one submission attempt on a
// substrate. A nil *ExecutionResult on TaskRecord means the task never ran
// there; a present result with a nonzero ReturnCode means it ran and failed.
type ExecutionResult struct {
	ReturnCode int    `json:"return_code"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// TaskRecord is the persisted description of one task instance. It carries
// no behavior; the task package mutates it through lifecycle calls and it
// is never deleted, surviving as pipeline history even after failure.
type TaskRecord struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Engine EngineName `json:"engine"`
	Type   TaskType   `json:"type"`

	// Directory is the task's working directory relative to the project
	// root. It is minted once at creation and never reused.
	Directory string `json:"directory"`

	// Parameters is the validated user-supplied configuration for this
	// stage. Immutable once the task is created; distinct from the
	// rendered engine input.
	Parameters map[string]any `json:"parameters,omitempty"`

	Input InputFile `json:"input"`

	// Output maps logical artifact names (e.g. "primary_log",
	// "mo_population_file") to paths relative to the project root.
	// Entries are only ever added, never overwritten by a later stage.
	Output map[string]string `json:"output,omitempty"`

	State TaskState `json:"state"`

	Local   *ExecutionResult `json:"local_execution,omitempty"`
	Network *ExecutionResult `json:"network_execution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTaskRecord creates a record with a fresh identity. Identifiers are
// generated per instance so concurrent tasks never share one.
func NewTaskRecord(name string, engine EngineName, taskType TaskType, directory string, params map[string]any) *TaskRecord {
	return &TaskRecord{
		ID:         uuid.New(),
		Name:       name,
		Engine:     engine,
		Type:       taskType,
		Directory:  directory,
		Parameters: params,
		Output:     make(map[string]string),
		CreatedAt:  time.Now().UTC(),
	}
}

// AddOutput registers an artifact path under a logical name. An existing
// entry wins; a second registration under the same name is ignored so a
// later stage cannot silently clobber an earlier artifact.
func (r *TaskRecord) AddOutput(name, relPath string) {
	if r.Output == nil {
		r.Output = make(map[string]string)
	}
	if _, ok := r.Output[name]; ok {
		return
	}
	r.Output[name] = relPath
}

// Succeeded reports whether the record holds a successful execution on
// either substrate.
func (r *TaskRecord) Succeeded() bool {
	if r.Local != nil && r.Local.ReturnCode == 0 {
		return true
	}
	if r.Network != nil && r.Network.ReturnCode == 0 {
		return true
	}
	return false
}
