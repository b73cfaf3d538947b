package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ash399/litesoph/internal/store"
)

// Manifest describes one pipeline: an ordered list of stages run against a
// default engine.
type Manifest struct {
	Project string  `yaml:"project"`
	Engine  string  `yaml:"engine"`
	Stages  []Stage `yaml:"stages"`
}

// Stage is one pipeline step in a manifest.
type Stage struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Engine    string         `yaml:"engine,omitempty"`
	Params    map[string]any `yaml:"params,omitempty"`
	DependsOn []string       `yaml:"depends_on,omitempty"`
	Processes int            `yaml:"processes,omitempty"`
}

// TaskType returns the stage's task type.
func (s Stage) TaskType() store.TaskType {
	return store.TaskType(s.Type)
}

// EngineName returns the stage's engine, falling back to the manifest
// default.
func (s Stage) EngineName(m *Manifest) store.EngineName {
	if s.Engine != "" {
		return store.EngineName(s.Engine)
	}
	return store.EngineName(m.Engine)
}

// LoadManifest reads and validates a pipeline manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return LoadManifestFromBytes(data)
}

// LoadManifestFromBytes parses and validates a manifest from raw bytes.
func LoadManifestFromBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	if m.Engine == "" {
		return nil, fmt.Errorf("manifest declares no engine")
	}
	if len(m.Stages) == 0 {
		return nil, fmt.Errorf("manifest declares no stages")
	}

	seen := make(map[string]bool, len(m.Stages))
	for i, s := range m.Stages {
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if s.Type == "" {
			return nil, fmt.Errorf("stage %q has no type", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate stage name %q", s.Name)
		}
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				return nil, fmt.Errorf("stage %q depends on %q, which is not an earlier stage", s.Name, dep)
			}
		}
		seen[s.Name] = true
	}
	return &m, nil
}
