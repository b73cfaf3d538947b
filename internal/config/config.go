// Package config handles environment variable loading for engine paths,
// launcher paths and the remote execution profile.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values the task layer needs. It is passed
// explicitly into the pipeline manager; nothing reads it from a process-wide
// lookup at task-construction time.
type Config struct {
	// Engines maps engine name to executable path. Missing entries fall
	// back to the engine name itself, resolved through PATH.
	Engines map[string]string

	// MPIRun is the parallel-launcher path used when a job asks for more
	// than one process.
	MPIRun string

	// Python is the interpreter used for control-script driven engines.
	Python string

	// Shell invokes job scripts locally ("bash" or "sh").
	Shell string

	Remote RemoteConfig
}

// RemoteConfig describes the single remote host jobs can be pushed to.
type RemoteConfig struct {
	Host     string
	User     string
	Password string
	KeyFile  string
	Port     int

	// BasePath is the remote directory under which the project tree is
	// mirrored.
	BasePath string
}

// Configured reports whether a remote host has been set up at all.
func (r RemoteConfig) Configured() bool {
	return r.Host != ""
}

// Lookup resolves one configuration key ("nwchem", "remote_host", ...).
// An empty result means the key is unset.
type Lookup func(key string) string

// Load reads configuration from LITESOPH_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(func(key string) string {
		return os.Getenv("LITESOPH_" + strings.ToUpper(key))
	})
}

// LoadFrom builds the configuration through the given lookup, so callers
// can resolve keys from sources beyond the environment. The CLI passes
// viper's resolver, which layers a config file under the LITESOPH_* vars.
func LoadFrom(get Lookup) (*Config, error) {
	or := func(key, fallback string) string {
		if v := get(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Engines: map[string]string{
			"nwchem": or("nwchem", "nwchem"),
			"gpaw":   or("gpaw", "gpaw"),
		},
		MPIRun: or("mpirun", "mpirun"),
		Python: or("python", "python3"),
		Shell:  or("shell", "bash"),
	}

	cfg.Remote = RemoteConfig{
		Host:     get("remote_host"),
		User:     get("remote_user"),
		Password: get("remote_password"),
		KeyFile:  get("remote_keyfile"),
		BasePath: get("remote_path"),
		Port:     22,
	}

	if portStr := get("remote_port"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid LITESOPH_REMOTE_PORT: %w", err)
		}
		cfg.Remote.Port = p
	}

	if cfg.Remote.Configured() {
		if cfg.Remote.User == "" {
			return nil, fmt.Errorf("remote_user is required (env: LITESOPH_REMOTE_USER)")
		}
		if cfg.Remote.BasePath == "" {
			return nil, fmt.Errorf("remote_path is required (env: LITESOPH_REMOTE_PATH)")
		}
	}

	return cfg, nil
}

// EnginePath resolves the executable for an engine name.
func (c *Config) EnginePath(engine string) string {
	if p, ok := c.Engines[engine]; ok && p != "" {
		return p
	}
	return engine
}

