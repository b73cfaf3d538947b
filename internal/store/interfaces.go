package store

import "errors"

// ErrTaskNotFound is returned when no record exists under the given name.
var ErrTaskNotFound = errors.New("task not found")

// ProjectStore handles the persistence of task records for one project.
// The orchestration core only requires get/update semantics keyed by task
// name and dotted field path; backends decide the storage format.
type ProjectStore interface {
	// SaveTask inserts or replaces the record stored under rec.Name.
	SaveTask(rec *TaskRecord) error

	// GetTask returns the record stored under the given task name.
	GetTask(name string) (*TaskRecord, error)

	// ListTasks returns all records in creation order.
	ListTasks() ([]*TaskRecord, error)

	// UpdateTaskField sets a single field addressed by a dotted path
	// (e.g. "output.primary_log", "state.input_saved") on the named
	// record.
	UpdateTaskField(name, fieldPath string, value any) error
}
