// Package planner diffs the desired resource graph against last-known
// applied state and produces an ordered ChangeSet.
//
// Comparison is by identity plus declared-attribute equality: placeholders
// are compared unresolved, so a plan never depends on provider-assigned
// values. Creates and updates come out in topological order of the desired
// graph; deletes in reverse order of the recorded apply sequence.
package planner

import (
	"fmt"
	"reflect"
	"sort"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/graph"
	"github.com/waskit/waskit/internal/manifest"
	"github.com/waskit/waskit/internal/state"
)

// Options carries the build-stage inputs the plan depends on.
type Options struct {
	// ArtifactHash is bound to the function resource as its code_hash
	// attribute. An unchanged hash therefore plans no function operation:
	// the idempotent-redeploy property of the whole pipeline.
	ArtifactHash string
	// FunctionEnv is merged into the function's environment attribute
	// (runtime log/trace passthrough).
	FunctionEnv map[string]string
}

// Plan computes the ChangeSet that reconciles prior state with the manifest.
func Plan(m *manifest.Manifest, prior *state.State, opts Options) (waskit.ChangeSet, error) {
	desired, err := effectiveResources(m, opts)
	if err != nil {
		return waskit.ChangeSet{}, err
	}

	g, err := graph.FromResources(desired)
	if err != nil {
		return waskit.ChangeSet{}, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return waskit.ChangeSet{}, err
	}

	var cs waskit.ChangeSet
	for _, id := range order {
		res, _ := g.Resource(id)
		applied, exists := prior.Get(id)
		if !exists {
			cs.Operations = append(cs.Operations, waskit.Operation{Kind: waskit.OpCreate, Resource: res})
			continue
		}
		changes := diffResource(applied, res)
		if len(changes) > 0 {
			cs.Operations = append(cs.Operations, waskit.Operation{
				Kind:     waskit.OpUpdate,
				Resource: res,
				Changes:  changes,
			})
		}
	}

	// Resources that were applied but are no longer declared get deleted,
	// dependents first: reverse of the recorded apply order.
	for i := len(prior.Resources) - 1; i >= 0; i-- {
		applied := prior.Resources[i]
		if _, stillDeclared := g.Resource(applied.ID); stillDeclared {
			continue
		}
		cs.Operations = append(cs.Operations, waskit.Operation{
			Kind: waskit.OpDelete,
			Resource: waskit.Resource{
				ID:         applied.ID,
				Type:       applied.Type,
				Attributes: applied.Attributes,
				DependsOn:  applied.DependsOn,
			},
		})
	}

	return cs, nil
}

// effectiveResources returns the manifest's resources with the build-stage
// inputs folded into the function resource.
func effectiveResources(m *manifest.Manifest, opts Options) ([]waskit.Resource, error) {
	fn, err := m.Function()
	if err != nil {
		return nil, err
	}

	out := make([]waskit.Resource, len(m.Resources))
	for i, res := range m.Resources {
		if res.ID != fn.ID {
			out[i] = res
			continue
		}
		attrs := make(map[string]any, len(res.Attributes)+2)
		for k, v := range res.Attributes {
			attrs[k] = v
		}
		if opts.ArtifactHash != "" {
			attrs["code_hash"] = opts.ArtifactHash
		}
		if len(opts.FunctionEnv) > 0 {
			env := make(map[string]any)
			if existing, ok := attrs["environment"].(map[string]any); ok {
				for k, v := range existing {
					env[k] = v
				}
			}
			for k, v := range opts.FunctionEnv {
				env[k] = v
			}
			attrs["environment"] = env
		}
		out[i] = waskit.Resource{
			ID:         res.ID,
			Type:       res.Type,
			Attributes: attrs,
			DependsOn:  res.DependsOn,
		}
	}
	return out, nil
}

// diffResource compares an applied resource's declared form against the
// desired one, returning the changed paths.
func diffResource(applied waskit.AppliedResource, desired waskit.Resource) []string {
	var changes []string
	if applied.Type != desired.Type {
		changes = append(changes, fmt.Sprintf("type: %s -> %s", applied.Type, desired.Type))
	}
	changes = append(changes, diffAttributes("", applied.Declared, desired.Attributes)...)
	if !equalStringSlices(applied.DependsOn, desired.DependsOn) {
		changes = append(changes, "depends_on")
	}
	return changes
}

// diffAttributes recursively compares attribute maps, reporting added,
// removed and modified paths.
func diffAttributes(prefix string, prior, desired map[string]any) []string {
	var changes []string

	for key, want := range desired {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		have, exists := prior[key]
		if !exists {
			changes = append(changes, path+" added")
			continue
		}
		priorMap, pOK := have.(map[string]any)
		desiredMap, dOK := want.(map[string]any)
		if pOK && dOK {
			changes = append(changes, diffAttributes(path, priorMap, desiredMap)...)
			continue
		}
		if !looselyEqual(have, want) {
			changes = append(changes, path+" modified")
		}
	}
	for key := range prior {
		if _, exists := desired[key]; !exists {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			changes = append(changes, path+" removed")
		}
	}

	sort.Strings(changes)
	return changes
}

// looselyEqual compares values after normalizing the numeric and slice types
// YAML round-trips shuffle (int vs int64, []any element order preserved).
func looselyEqual(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float64:
		// YAML decodes whole numbers as int; JSON as float64.
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
