package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for task lifecycle operations.
var (
	// ErrSetup indicates the declared parameters cannot produce valid
	// engine input. Raised during template construction, before any
	// external process runs.
	ErrSetup = errors.New("invalid task setup")

	// ErrPrerequisite indicates a required artifact is absent on the
	// target substrate. Submission must not proceed.
	ErrPrerequisite = errors.New("required artifact missing")

	// ErrExecution indicates a process could not be started at all
	// (missing executable, unreachable host, bad credentials).
	ErrExecution = errors.New("job could not be started")

	// ErrNotCompleted indicates no execution record with a return code
	// exists for the task.
	ErrNotCompleted = errors.New("job not completed")

	// ErrExtraction indicates a completed run's output cannot be found
	// or parsed. Recoverable: the caller can retry with adjusted
	// parameters.
	ErrExtraction = errors.New("result extraction failed")
)

// Error wraps task errors with the operation and task that produced them.
type Error struct {
	// Op is the lifecycle operation that failed (e.g. "CreateInput").
	Op string

	// Task is the task name, if known.
	Task string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Task, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsSetup returns true if the error indicates invalid task parameters.
func IsSetup(err error) bool {
	return errors.Is(err, ErrSetup)
}

// IsPrerequisite returns true if the error indicates a missing artifact.
func IsPrerequisite(err error) bool {
	return errors.Is(err, ErrPrerequisite)
}

// IsExecution returns true if the error indicates a process that could not
// be started.
func IsExecution(err error) bool {
	return errors.Is(err, ErrExecution)
}

// IsNotCompleted returns true if the error indicates a task with no
// recorded execution outcome.
func IsNotCompleted(err error) bool {
	return errors.Is(err, ErrNotCompleted)
}

// IsExtraction returns true if the error indicates unreadable results.
func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}
