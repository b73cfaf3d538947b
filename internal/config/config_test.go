package config

import (
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	for _, key := range []string{
		"LITESOPH_NWCHEM", "LITESOPH_GPAW", "LITESOPH_MPIRUN",
		"LITESOPH_PYTHON", "LITESOPH_SHELL", "LITESOPH_REMOTE_HOST",
		"LITESOPH_REMOTE_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EnginePath("nwchem") != "nwchem" {
		t.Errorf("expected nwchem path nwchem, got %s", cfg.EnginePath("nwchem"))
	}
	if cfg.MPIRun != "mpirun" {
		t.Errorf("expected MPIRun mpirun, got %s", cfg.MPIRun)
	}
	if cfg.Python != "python3" {
		t.Errorf("expected Python python3, got %s", cfg.Python)
	}
	if cfg.Shell != "bash" {
		t.Errorf("expected Shell bash, got %s", cfg.Shell)
	}
	if cfg.Remote.Configured() {
		t.Error("expected remote to be unconfigured by default")
	}
	if cfg.Remote.Port != 22 {
		t.Errorf("expected remote port 22, got %d", cfg.Remote.Port)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("LITESOPH_NWCHEM", "/opt/nwchem/bin/nwchem")
	t.Setenv("LITESOPH_MPIRUN", "/usr/lib64/openmpi/bin/mpirun")
	t.Setenv("LITESOPH_REMOTE_HOST", "hpc.example.edu")
	t.Setenv("LITESOPH_REMOTE_USER", "sim")
	t.Setenv("LITESOPH_REMOTE_PATH", "/scratch/sim")
	t.Setenv("LITESOPH_REMOTE_PORT", "2222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EnginePath("nwchem") != "/opt/nwchem/bin/nwchem" {
		t.Errorf("unexpected nwchem path: %s", cfg.EnginePath("nwchem"))
	}
	if cfg.MPIRun != "/usr/lib64/openmpi/bin/mpirun" {
		t.Errorf("unexpected MPIRun: %s", cfg.MPIRun)
	}
	if !cfg.Remote.Configured() {
		t.Fatal("expected remote to be configured")
	}
	if cfg.Remote.Port != 2222 {
		t.Errorf("expected remote port 2222, got %d", cfg.Remote.Port)
	}
}

func TestLoad_RemoteRequiresUser(t *testing.T) {
	t.Setenv("LITESOPH_REMOTE_HOST", "hpc.example.edu")
	t.Setenv("LITESOPH_REMOTE_USER", "")
	t.Setenv("LITESOPH_REMOTE_PATH", "/scratch/sim")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when remote host is set without a user")
	}
	if err.Error() != "remote_user is required (env: LITESOPH_REMOTE_USER)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("LITESOPH_REMOTE_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid LITESOPH_REMOTE_PORT")
	}
}

func TestLoadFrom_ResolvesThroughLookup(t *testing.T) {
	values := map[string]string{
		"nwchem":      "/cluster/apps/nwchem",
		"shell":       "sh",
		"remote_host": "hpc.example.edu",
		"remote_user": "sim",
		"remote_path": "/scratch/sim",
		"remote_port": "2200",
	}
	cfg, err := LoadFrom(func(key string) string { return values[key] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EnginePath("nwchem") != "/cluster/apps/nwchem" {
		t.Errorf("unexpected nwchem path: %s", cfg.EnginePath("nwchem"))
	}
	if cfg.Shell != "sh" {
		t.Errorf("unexpected shell: %s", cfg.Shell)
	}
	if cfg.MPIRun != "mpirun" {
		t.Errorf("expected default MPIRun, got %s", cfg.MPIRun)
	}
	if !cfg.Remote.Configured() || cfg.Remote.Port != 2200 {
		t.Errorf("unexpected remote profile: %+v", cfg.Remote)
	}
}

func TestLoadFrom_ValidatesRemoteProfile(t *testing.T) {
	values := map[string]string{"remote_host": "hpc.example.edu"}
	_, err := LoadFrom(func(key string) string { return values[key] })
	if err == nil {
		t.Fatal("expected error when remote host is set without a user")
	}
}

func TestEnginePath_FallsBackToName(t *testing.T) {
	cfg := &Config{Engines: map[string]string{}}
	if got := cfg.EnginePath("octopus"); got != "octopus" {
		t.Errorf("expected fallback to engine name, got %s", got)
	}
}
