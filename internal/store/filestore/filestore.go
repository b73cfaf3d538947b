// Package filestore persists task records as a JSON document inside the
// project directory, so project state travels with the artifact tree it
// describes.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ash399/litesoph/internal/store"
)

const (
	stateDirName  = ".litesoph"
	stateFileName = "tasks.json"
)

// Store implements store.ProjectStore over <project>/.litesoph/tasks.json.
type Store struct {
	projectDir string
}

// New creates the state directory if needed and returns a store rooted at
// the given project directory.
func New(projectDir string) (*Store, error) {
	dir := filepath.Join(projectDir, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{projectDir: projectDir}, nil
}

func (s *Store) statePath() string {
	return filepath.Join(s.projectDir, stateDirName, stateFileName)
}

func (s *Store) load() ([]*store.TaskRecord, error) {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read project state: %w", err)
	}
	var recs []*store.TaskRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("corrupt project state: %w", err)
	}
	return recs, nil
}

// save rewrites the whole document through a temp file and rename, so a
// crash mid-write never leaves a truncated state file behind.
func (s *Store) save(recs []*store.TaskRecord) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.statePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project state: %w", err)
	}
	return os.Rename(tmp, s.statePath())
}

// SaveTask inserts or replaces the record stored under rec.Name.
func (s *Store) SaveTask(rec *store.TaskRecord) error {
	recs, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, r := range recs {
		if r.Name == rec.Name {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return s.save(recs)
}

// GetTask returns the record stored under the given task name.
func (s *Store) GetTask(name string) (*store.TaskRecord, error) {
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, name)
}

// ListTasks returns all records in creation order.
func (s *Store) ListTasks() ([]*store.TaskRecord, error) {
	return s.load()
}

// UpdateTaskField sets one field addressed by a dotted path on the named
// record. The path walks the record's JSON representation, so segment
// names match the persisted field names ("output.primary_log",
// "state.input_saved", "local_execution.return_code").
func (s *Store) UpdateTaskField(name, fieldPath string, value any) error {
	recs, err := s.load()
	if err != nil {
		return err
	}
	for i, r := range recs {
		if r.Name != name {
			continue
		}
		updated, err := setField(r, fieldPath, value)
		if err != nil {
			return err
		}
		recs[i] = updated
		return s.save(recs)
	}
	return fmt.Errorf("%w: %s", store.ErrTaskNotFound, name)
}

// setField applies the dotted-path update over the record's JSON document
// and decodes it back, keeping the typed record as the source of truth.
func setField(rec *store.TaskRecord, fieldPath string, value any) (*store.TaskRecord, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	segments := strings.Split(fieldPath, ".")
	node := doc
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value

	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out store.TaskRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("field %q does not fit the record: %w", fieldPath, err)
	}
	return &out, nil
}
