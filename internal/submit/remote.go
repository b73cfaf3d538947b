package submit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"github.com/ash399/litesoph/internal/observability"
	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

// errStillRunning drives the poll-retry loop; it never escapes Wait.
var errStillRunning = errors.New("sentinel not present yet")

// Remote pushes job scripts to a single remote host and observes their
// completion through the sentinel file. Launch and completion are
// decoupled: Run returns once the remote process is detached, and only
// Poll can report that the job finished.
type Remote struct {
	sess       Session
	basePath   string
	projectDir string
	log        *slog.Logger
}

// NewRemote wires a remote submitter over an established session. basePath
// is the remote directory under which the project tree is mirrored;
// projectDir is the absolute local project root.
func NewRemote(sess Session, basePath, projectDir string, log *slog.Logger) *Remote {
	return &Remote{sess: sess, basePath: basePath, projectDir: projectDir, log: log}
}

// remotePath maps a project-relative path into the mirrored remote tree.
func (r *Remote) remotePath(rel string) string {
	return path.Join(r.basePath, filepath.ToSlash(rel))
}

// BasePath returns the remote mirror root.
func (r *Remote) BasePath() string { return r.basePath }

// ArtifactExists implements task.ArtifactChecker against the remote tree.
func (r *Remote) ArtifactExists(ctx context.Context, rel string) (bool, error) {
	return r.sess.Exists(ctx, r.remotePath(rel))
}

// Exists satisfies task.ArtifactChecker.
func (r *Remote) Exists(ctx context.Context, rel string) (bool, error) {
	return r.ArtifactExists(ctx, rel)
}

// Prepare mirrors the task's directory on the remote host and uploads the
// job script, the rendered input and the required input artifacts that are
// present locally. Re-running Prepare re-uploads and overwrites; the
// remote side is not atomic mid-transfer.
func (r *Remote) Prepare(ctx context.Context, t *task.Task) error {
	rec := t.Record()
	remoteDir := r.remotePath(rec.Directory)
	if err := r.sess.MkdirAll(ctx, remoteDir); err != nil {
		return fmt.Errorf("mirroring %s: %w", rec.Directory, err)
	}

	script := filepath.Join(t.Dir(), t.ScriptName())
	if err := r.sess.Upload(ctx, script, path.Join(remoteDir, t.ScriptName())); err != nil {
		return fmt.Errorf("uploading job script: %w", err)
	}

	uploads := t.RequiredArtifacts()
	if rec.Input.Path != "" {
		uploads = append(uploads, rec.Input.Path)
	}
	for _, rel := range uploads {
		local := filepath.Join(r.projectDir, rel)
		info, err := os.Stat(local)
		if err != nil {
			if os.IsNotExist(err) {
				// Artifacts produced by earlier remote stages already
				// live in the mirror.
				continue
			}
			return err
		}
		if info.IsDir() {
			if err := r.uploadTree(ctx, local, r.remotePath(rel)); err != nil {
				return fmt.Errorf("mirroring %s: %w", rel, err)
			}
			continue
		}
		if err := r.sess.Upload(ctx, local, r.remotePath(rel)); err != nil {
			return fmt.Errorf("uploading %s: %w", rel, err)
		}
	}
	r.log.Info("remote directory prepared", "task", rec.Name, "remote_dir", remoteDir)
	return nil
}

// uploadTree mirrors a local directory artifact into the remote tree,
// keeping empty directories (a restart directory may start out empty).
func (r *Remote) uploadTree(ctx context.Context, localDir, remoteDir string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		dest := remoteDir
		if rel != "." {
			dest = path.Join(remoteDir, filepath.ToSlash(rel))
		}
		if d.IsDir() {
			return r.sess.MkdirAll(ctx, dest)
		}
		return r.sess.Upload(ctx, p, dest)
	})
}

// Run launches the job script on the remote host, detached at the shell
// level so it survives session termination, and records the submission
// outcome. It does not block for job completion.
func (r *Remote) Run(ctx context.Context, t *task.Task) error {
	rec := t.Record()
	remoteDir := r.remotePath(rec.Directory)

	observability.SubmissionsTotal.WithLabelValues(string(rec.Engine), string(rec.Type), "network").Inc()

	cmd := fmt.Sprintf("cd %s && chmod +x %s && nohup bash %s > job.out 2> job.err < /dev/null &",
		remoteDir, t.ScriptName(), t.ScriptName())
	stdout, stderr, code, err := r.sess.Run(ctx, cmd)
	if err != nil {
		return err
	}

	rec.Network = &store.ExecutionResult{
		ReturnCode: code,
		Stdout:     stdout,
		Stderr:     stderr,
	}
	if code != 0 {
		observability.FailuresTotal.WithLabelValues(string(rec.Engine), string(rec.Type)).Inc()
		return fmt.Errorf("%w: remote launch exited with code %d: %s", task.ErrExecution, code, stderr)
	}
	r.log.Info("remote job launched", "task", rec.Name, "remote_dir", remoteDir)
	return nil
}

// Poll checks for the completion sentinel. Absence means still running or
// never started; the two are indistinguishable by design. Polling has no
// side effects and may be repeated freely.
func (r *Remote) Poll(ctx context.Context, t *task.Task) (bool, error) {
	return r.sess.Exists(ctx, path.Join(r.remotePath(t.Record().Directory), task.DoneFileName))
}

// Wait polls for the sentinel under exponential backoff until it appears
// or the context is cancelled. The core enforces no timeout of its own.
func (r *Remote) Wait(ctx context.Context, t *task.Task) error {
	operation := func() error {
		done, err := r.Poll(ctx, t)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errStillRunning
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // poll until cancelled
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return err
	}
	rec := t.Record()
	observability.CompletionsTotal.WithLabelValues(string(rec.Engine), string(rec.Type)).Inc()
	return nil
}

// FetchOutputs downloads the task's declared output artifacts back into
// the local project tree. Call it only after Poll reports completion.
func (r *Remote) FetchOutputs(ctx context.Context, t *task.Task) error {
	rec := t.Record()
	for name, rel := range rec.Output {
		local := filepath.Join(r.projectDir, rel)
		if err := r.sess.Download(ctx, r.remotePath(rel), local); err != nil {
			return fmt.Errorf("fetching %s (%s): %w", name, rel, err)
		}
	}
	r.log.Info("remote outputs fetched", "task", rec.Name, "count", len(rec.Output))
	return nil
}
