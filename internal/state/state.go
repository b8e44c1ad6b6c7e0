// Package state persists the last-known applied resource state.
//
// The state file is the only shared mutable resource in the pipeline. A
// single invocation holds an advisory lock for its whole duration; a second
// invocation against the same state directory fails with
// waskit.ErrConcurrentModification instead of corrupting the record.
// Partial-apply is a legitimate terminal state: the store saves whatever
// had committed before a failure.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	waskit "github.com/waskit/waskit"
)

const (
	stateFile = "state.yaml"
	lockFile  = "state.lock"
)

// State is the applied-state record.
type State struct {
	Name   string `yaml:"name,omitempty"`
	Stage  string `yaml:"stage,omitempty"`
	Region string `yaml:"region,omitempty"`
	// Serial increments on every save, for operator forensics.
	Serial int `yaml:"serial"`
	// Resources in the order they were applied.
	Resources []waskit.AppliedResource `yaml:"resources,omitempty"`
}

// Get returns the applied resource with the given ID.
func (s *State) Get(id string) (waskit.AppliedResource, bool) {
	for _, res := range s.Resources {
		if res.ID == id {
			return res, true
		}
	}
	return waskit.AppliedResource{}, false
}

// Put inserts or replaces an applied resource, preserving apply order.
func (s *State) Put(res waskit.AppliedResource) {
	for i, existing := range s.Resources {
		if existing.ID == res.ID {
			s.Resources[i] = res
			return
		}
	}
	s.Resources = append(s.Resources, res)
}

// Remove deletes an applied resource by ID.
func (s *State) Remove(id string) {
	for i, res := range s.Resources {
		if res.ID == id {
			s.Resources = append(s.Resources[:i], s.Resources[i+1:]...)
			return
		}
	}
}

// Empty reports whether nothing is applied.
func (s *State) Empty() bool { return len(s.Resources) == 0 }

// Attribute returns a string attribute of an applied resource.
func (s *State) Attribute(id, name string) (string, bool) {
	res, ok := s.Get(id)
	if !ok {
		return "", false
	}
	v, ok := res.Attributes[name]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Store owns the state directory and its advisory lock.
type Store struct {
	dir  string
	lock *flock.Flock
}

// Open creates the state directory if needed and takes the advisory lock.
// If another invocation already holds it, Open fails immediately with
// waskit.ErrConcurrentModification rather than blocking.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking state: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", waskit.ErrConcurrentModification, lock.Path())
	}
	return &Store{dir: dir, lock: lock}, nil
}

// Close releases the advisory lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Load reads the applied state. A missing file is an empty state, not an
// error: first deploys start from nothing.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return &st, nil
}

// Save writes the state atomically (temp file + rename) so a crash mid-save
// never leaves a torn record.
func (s *Store) Save(st *State) error {
	st.Serial++
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, stateFile+".*")
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, stateFile))
}
