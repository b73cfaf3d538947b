package task

import (
	"fmt"
	"strings"
)

const (
	scriptShebang = "#!/bin/bash"

	// DoneFileName is the zero-byte sentinel a remote job script creates
	// in its working directory as the only portable completion signal.
	DoneFileName = "Done"

	sentinelCommand = "touch " + DoneFileName

	defaultLauncher = "mpirun"
)

// ScriptSpec describes one job script to assemble.
type ScriptSpec struct {
	// Command is the engine invocation line. Empty means the script only
	// sets up the working directory (and, remotely, the sentinel).
	Command string

	// Processes is the parallelism degree. Above one, Command is wrapped
	// with the parallel launcher; at one it runs in a subshell that
	// echoes its pid first so progress can be inspected externally.
	Processes int

	// WorkDir, when set, is entered before the command runs.
	WorkDir string

	// LauncherPath overrides the mpirun executable used for parallel
	// runs.
	LauncherPath string

	// Remote selects the remote script layout: scheduler and bootstrap
	// blocks up front, sentinel command at the end.
	Remote bool

	// SchedulerBlock and BootstrapBlock are inserted verbatim; their
	// exact text is supplied by the remote profile.
	SchedulerBlock string
	BootstrapBlock string

	// ExtraBlock is appended verbatim after the execution line.
	ExtraBlock string
}

// AssembleJobScript builds an executable shell script body. The first line
// is always the interpreter directive; for remote scripts the last line is
// always the sentinel-creation command.
func AssembleJobScript(spec ScriptSpec) string {
	lines := []string{scriptShebang}

	if spec.Remote {
		if spec.SchedulerBlock != "" {
			lines = append(lines, spec.SchedulerBlock)
		}
		if spec.BootstrapBlock != "" {
			lines = append(lines, spec.BootstrapBlock)
		}
	}

	if spec.WorkDir != "" {
		lines = append(lines, fmt.Sprintf("cd %s;", spec.WorkDir))
	}

	if spec.Command != "" {
		if spec.Processes > 1 {
			launcher := spec.LauncherPath
			if launcher == "" {
				launcher = defaultLauncher
			}
			lines = append(lines, fmt.Sprintf("%s -np %d %s", launcher, spec.Processes, spec.Command))
		} else {
			lines = append(lines, fmt.Sprintf("bash -c 'echo $$;  %s'", spec.Command))
		}
	}

	if spec.ExtraBlock != "" {
		lines = append(lines, spec.ExtraBlock)
	}

	if spec.Remote {
		lines = append(lines, sentinelCommand)
	}

	return strings.Join(lines, "\n")
}

// PBSSchedulerBlock returns a default PBS directive block for a named job.
// Remote profiles usually supply their own text; this is the fallback.
func PBSSchedulerBlock(name string) string {
	return strings.Join([]string{
		fmt.Sprintf("#PBS -N %s", name),
		"#PBS -o output.txt",
		"#PBS -e error.txt",
		"#PBS -l select=1:ncpus=4:mpiprocs=4",
		"#PBS -q debug",
		"#PBS -l walltime=00:30:00",
		"#PBS -V",
		"cd $PBS_O_WORKDIR",
	}, "\n")
}
