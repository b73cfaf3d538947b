package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ash399/litesoph/internal/config"
	"github.com/ash399/litesoph/internal/task"
)

// SSHSession implements Session over an SSH connection with an SFTP
// subsystem for file transfer.
type SSHSession struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// DialSSH establishes the remote-shell session. Unreachable hosts and bad
// credentials fail here, before any script is uploaded.
func DialSSH(profile config.RemoteConfig) (*SSHSession, error) {
	var auth []ssh.AuthMethod
	if profile.KeyFile != "" {
		key, err := os.ReadFile(profile.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading key file: %v", task.ErrExecution, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing key file: %v", task.ErrExecution, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if profile.Password != "" {
		auth = append(auth, ssh.Password(profile.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: remote profile has neither password nor key file", task.ErrExecution)
	}

	cfg := &ssh.ClientConfig{
		User: profile.User,
		Auth: auth,
		// Cluster head nodes are provisioned by the same profile that
		// supplies the credentials; host keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", profile.Host, profile.Port)
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", task.ErrExecution, addr, err)
	}

	ftp, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: opening sftp subsystem: %v", task.ErrExecution, err)
	}

	return &SSHSession{client: client, sftp: ftp}, nil
}

// Run executes a command in a fresh SSH session and returns its output and
// exit code.
func (s *SSHSession) Run(ctx context.Context, command string) (string, string, int, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", "", -1, fmt.Errorf("%w: %v", task.ErrExecution, err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		return stdout.String(), stderr.String(), -1, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitStatus(), nil
		}
		return stdout.String(), stderr.String(), -1, fmt.Errorf("%w: %v", task.ErrExecution, err)
	}
	return stdout.String(), stderr.String(), 0, nil
}

// Upload copies a local file to an absolute remote path, creating parent
// directories as needed. Existing remote files are overwritten.
func (s *SSHSession) Upload(_ context.Context, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := s.sftp.MkdirAll(path.Dir(remotePath)); err != nil {
		return err
	}
	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Download copies an absolute remote path to a local file, creating parent
// directories as needed.
func (s *SSHSession) Download(_ context.Context, remotePath, localPath string) error {
	src, err := s.sftp.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Exists reports whether the remote path exists.
func (s *SSHSession) Exists(_ context.Context, remotePath string) (bool, error) {
	_, err := s.sftp.Stat(remotePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// MkdirAll creates the remote directory and any missing parents.
func (s *SSHSession) MkdirAll(_ context.Context, remotePath string) error {
	return s.sftp.MkdirAll(remotePath)
}

// Close tears down the SFTP subsystem and the SSH connection.
func (s *SSHSession) Close() error {
	s.sftp.Close()
	return s.client.Close()
}
