// Package manifest loads the declarative desired-state document.
//
// A deployment manifest names the deployment, its gateway stage and region,
// points at the signed artifact, and declares the resource graph. The tool
// never mutates the manifest; applied state is re-serialized separately.
package manifest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/graph"
)

// Manifest is the parsed desired-state document.
type Manifest struct {
	// Name identifies the deployment; the stub provider derives stable
	// identifiers from it.
	Name string `yaml:"name"`
	// Stage is the gateway deployment stage, e.g. "test".
	Stage string `yaml:"stage"`
	// Region the resources are addressed in.
	Region string `yaml:"region"`
	// Artifact is the path to the signed module binary, relative to the
	// manifest file.
	Artifact string `yaml:"artifact"`
	// Resources is the declared resource graph.
	Resources []waskit.Resource `yaml:"resources"`
}

// Load reads and parses a manifest file. Unknown fields are rejected so a
// typo'd attribute never silently deploys.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks document-level fields and the resource graph: identity,
// reference targets and acyclicity.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest has no name")
	}
	if m.Stage == "" {
		return fmt.Errorf("manifest %q has no stage", m.Name)
	}
	if len(m.Resources) == 0 {
		return fmt.Errorf("manifest %q declares no resources", m.Name)
	}
	_, err := m.Graph()
	return err
}

// Graph builds and validates the dependency graph of the declared resources.
func (m *Manifest) Graph() (*graph.Graph, error) {
	return graph.FromResources(m.Resources)
}

// Function returns the declared compute-function resource. Exactly one is
// expected; the artifact hash binds to it at plan time.
func (m *Manifest) Function() (waskit.Resource, error) {
	var found []waskit.Resource
	for _, res := range m.Resources {
		if res.Type == waskit.TypeFunction {
			found = append(found, res)
		}
	}
	switch len(found) {
	case 0:
		return waskit.Resource{}, fmt.Errorf("manifest %q declares no %s resource", m.Name, waskit.TypeFunction)
	case 1:
		return found[0], nil
	default:
		return waskit.Resource{}, fmt.Errorf("manifest %q declares %d %s resources, want 1", m.Name, len(found), waskit.TypeFunction)
	}
}
