package submit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ash399/litesoph/internal/store"
	"github.com/ash399/litesoph/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(strings.Builder), nil))
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestLocal_RunRecordsSuccess(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "job.sh", "#!/bin/bash\necho hello\n")

	rec := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)
	local := NewLocal("bash", testLogger())

	if err := local.Run(context.Background(), rec, dir, "job.sh"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Local == nil {
		t.Fatal("no execution result recorded")
	}
	if rec.Local.ReturnCode != 0 {
		t.Errorf("return code = %d, want 0", rec.Local.ReturnCode)
	}
	if !strings.Contains(rec.Local.Stdout, "hello") {
		t.Errorf("stdout = %q, want it to contain hello", rec.Local.Stdout)
	}
	if !rec.Succeeded() {
		t.Error("record does not report success")
	}
}

func TestLocal_RunRecordsNonzeroExitWithoutError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "job.sh", "#!/bin/bash\necho boom >&2\nexit 3\n")

	rec := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)
	local := NewLocal("bash", testLogger())

	// A run that starts and fails is an outcome, not an error.
	if err := local.Run(context.Background(), rec, dir, "job.sh"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Local == nil {
		t.Fatal("no execution result recorded")
	}
	if rec.Local.ReturnCode != 3 {
		t.Errorf("return code = %d, want 3", rec.Local.ReturnCode)
	}
	if !strings.Contains(rec.Local.Stderr, "boom") {
		t.Errorf("stderr = %q, want it to contain boom", rec.Local.Stderr)
	}
	if rec.Succeeded() {
		t.Error("record reports success for a failed run")
	}
}

func TestLocal_RunFailsWhenProcessCannotStart(t *testing.T) {
	dir := t.TempDir()
	rec := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)

	local := NewLocal("bash", testLogger())
	local.QueueCommand = filepath.Join(dir, "no-such-queue")

	err := local.Run(context.Background(), rec, dir, "job.sh")
	if !task.IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if rec.Local != nil {
		t.Error("execution result recorded for a process that never started")
	}
}

func TestLocal_RunRejectsUnsupportedShell(t *testing.T) {
	rec := store.NewTaskRecord("gs", store.EngineNWChem, store.TaskGroundState, "nwchem/ground_state", nil)
	local := NewLocal("zsh", testLogger())

	err := local.Run(context.Background(), rec, t.TempDir(), "job.sh")
	if !task.IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if !strings.Contains(err.Error(), "zsh") {
		t.Errorf("error does not name the rejected shell: %v", err)
	}
}
