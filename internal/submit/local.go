// Package submit executes assembled job scripts against a substrate: a
// blocking local subprocess, or a detached process on a single remote host.
package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/ash399/litesoph/internal/observability"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

// Local runs job scripts as child processes and blocks until they exit.
type Local struct {
	// Shell is the direct invocation command, "bash" or "sh".
	Shell string

	// QueueCommand, when set, replaces the shell with a queue-submission
	// command supplied by the caller (e.g. "qsub").
	QueueCommand string

	log *slog.Logger
}

// NewLocal returns a local submitter using the given shell.
func NewLocal(shell string, log *slog.Logger) *Local {
	return &Local{Shell: shell, log: log}
}

// Run executes the task's job script in its working directory and records
// {return_code, stdout, stderr} into the record's local execution slot. A
// nonzero exit code is recorded, not returned as an error; only a process
// that cannot be started at all fails the call, leaving the record unset.
func (s *Local) Run(ctx context.Context, rec *store.TaskRecord, dir, scriptName string) error {
	invocation := s.QueueCommand
	if invocation == "" {
		if s.Shell != "bash" && s.Shell != "sh" {
			return fmt.Errorf("%w: unsupported local invocation %q (want bash or sh)", task.ErrExecution, s.Shell)
		}
		invocation = s.Shell
	}

	observability.SubmissionsTotal.WithLabelValues(string(rec.Engine), string(rec.Type), "local").Inc()

	cmd := exec.CommandContext(ctx, invocation, scriptName)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Executable not found, bad working directory, or the
			// process never started. No outcome to record.
			return fmt.Errorf("%w: %v", task.ErrExecution, err)
		}
	}

	rec.Local = &store.ExecutionResult{
		ReturnCode: cmd.ProcessState.ExitCode(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}

	if rec.Local.ReturnCode == 0 {
		observability.CompletionsTotal.WithLabelValues(string(rec.Engine), string(rec.Type)).Inc()
	} else {
		observability.FailuresTotal.WithLabelValues(string(rec.Engine), string(rec.Type)).Inc()
	}
	s.log.Info("local run finished", "task", rec.Name, "return_code", rec.Local.ReturnCode)
	return nil
}
