package submit

import "context"

// Session abstracts the remote shell and file-transfer channel the remote
// submitter works over. The SSH implementation lives in ssh.go; tests
// substitute fakes.
type Session interface {
	// Run executes a command on the remote host and returns its output
	// and exit code. A non-nil error means the command could not be
	// executed at all.
	Run(ctx context.Context, command string) (stdout, stderr string, code int, err error)

	// Upload copies a local file to an absolute remote path.
	Upload(ctx context.Context, localPath, remotePath string) error

	// Download copies an absolute remote path to a local file.
	Download(ctx context.Context, remotePath, localPath string) error

	// Exists reports whether the remote path exists.
	Exists(ctx context.Context, remotePath string) (bool, error)

	// MkdirAll creates the remote directory and any missing parents.
	MkdirAll(ctx context.Context, remotePath string) error

	// Close tears the session down.
	Close() error
}
