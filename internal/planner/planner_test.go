package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/manifest"
	"github.com/waskit/waskit/internal/state"
)

func helloworldManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:     "helloworld",
		Stage:    "test",
		Region:   "us-east-1",
		Artifact: "build/helloworld_s.wasm",
		Resources: []waskit.Resource{
			{ID: "ExecutionRole", Type: waskit.TypeRole, Attributes: map[string]any{
				"name": "helloworld-role",
			}},
			{ID: "HelloFunction", Type: waskit.TypeFunction, Attributes: map[string]any{
				"name": "helloworld",
				"role": "${ExecutionRole.arn}",
			}},
			{ID: "API", Type: waskit.TypeRestAPI, Attributes: map[string]any{
				"name": "helloworld-api",
			}},
			{ID: "HelloRoute", Type: waskit.TypeRoute, Attributes: map[string]any{
				"rest_api": "${API.id}",
				"path":     "helloworld",
				"method":   "GET",
			}},
			{ID: "InvokePermission", Type: waskit.TypePermission, Attributes: map[string]any{
				"function": "${HelloFunction.arn}",
				"source":   "${HelloRoute.arn}",
			}},
			{ID: "Stage", Type: waskit.TypeDeployment, DependsOn: []string{"HelloRoute"}, Attributes: map[string]any{
				"rest_api": "${API.id}",
				"stage":    "test",
			}},
		},
	}
}

func opIndex(cs waskit.ChangeSet, id string) int {
	for i, op := range cs.Operations {
		if op.Resource.ID == id {
			return i
		}
	}
	return -1
}

func TestPlanInitialDeploy(t *testing.T) {
	cs, err := Plan(helloworldManifest(), &state.State{}, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	creates, updates, deletes := cs.Counts()
	assert.Equal(t, 6, creates)
	assert.Zero(t, updates)
	assert.Zero(t, deletes)

	// Topological order: the permission grant comes after both of its
	// dependencies.
	perm := opIndex(cs, "InvokePermission")
	assert.Greater(t, perm, opIndex(cs, "HelloFunction"))
	assert.Greater(t, perm, opIndex(cs, "HelloRoute"))
	assert.Greater(t, opIndex(cs, "HelloFunction"), opIndex(cs, "ExecutionRole"))
}

func TestPlanBindsArtifactHash(t *testing.T) {
	cs, err := Plan(helloworldManifest(), &state.State{}, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	fn := cs.Operations[opIndex(cs, "HelloFunction")]
	assert.Equal(t, "hash-1", fn.Resource.Attributes["code_hash"])
}

// appliedFrom records a changeset as applied, declared attributes intact,
// the way the provisioner does.
func appliedFrom(cs waskit.ChangeSet) *state.State {
	st := &state.State{}
	for _, op := range cs.Operations {
		st.Put(waskit.AppliedResource{
			ID:        op.Resource.ID,
			Type:      op.Resource.Type,
			Declared:  op.Resource.Attributes,
			DependsOn: op.Resource.DependsOn,
		})
	}
	return st
}

func TestPlanIdempotent(t *testing.T) {
	m := helloworldManifest()
	opts := Options{ArtifactHash: "hash-1", FunctionEnv: map[string]string{"RUST_LOG": "info"}}

	first, err := Plan(m, &state.State{}, opts)
	require.NoError(t, err)

	second, err := Plan(m, appliedFrom(first), opts)
	require.NoError(t, err)
	assert.True(t, second.Empty(), "re-planning an applied graph must be a no-op, got %+v", second.Operations)
}

func TestPlanArtifactChangeUpdatesOnlyFunction(t *testing.T) {
	m := helloworldManifest()

	first, err := Plan(m, &state.State{}, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)
	prior := appliedFrom(first)

	cs, err := Plan(m, prior, Options{ArtifactHash: "hash-2"})
	require.NoError(t, err)

	require.Len(t, cs.Operations, 1)
	op := cs.Operations[0]
	assert.Equal(t, waskit.OpUpdate, op.Kind)
	assert.Equal(t, "HelloFunction", op.Resource.ID)
	assert.Contains(t, op.Changes, "code_hash modified")
}

func TestPlanUnchangedHashKeepsFunction(t *testing.T) {
	m := helloworldManifest()

	first, err := Plan(m, &state.State{}, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	cs, err := Plan(m, appliedFrom(first), Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)
	assert.Equal(t, -1, opIndex(cs, "HelloFunction"),
		"unchanged artifact hash must plan no function operation")
}

func TestPlanRemovedResourceDeletedInReverseOrder(t *testing.T) {
	m := helloworldManifest()

	first, err := Plan(m, &state.State{}, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)
	prior := appliedFrom(first)

	// Drop the permission and the route from the manifest.
	var kept []waskit.Resource
	for _, res := range m.Resources {
		if res.ID == "InvokePermission" || res.ID == "HelloRoute" {
			continue
		}
		if res.ID == "Stage" {
			res = waskit.Resource{ID: res.ID, Type: res.Type, Attributes: res.Attributes}
		}
		kept = append(kept, res)
	}
	m.Resources = kept

	cs, err := Plan(m, prior, Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	var deletes []string
	for _, op := range cs.Operations {
		if op.Kind == waskit.OpDelete {
			deletes = append(deletes, op.Resource.ID)
		}
	}
	require.Equal(t, []string{"InvokePermission", "HelloRoute"}, deletes,
		"dependents must be deleted before their dependencies")
}

func TestPlanFunctionEnvPassthrough(t *testing.T) {
	cs, err := Plan(helloworldManifest(), &state.State{}, Options{
		ArtifactHash: "hash-1",
		FunctionEnv:  map[string]string{"RUST_LOG": "debug", "RUST_BACKTRACE": "1"},
	})
	require.NoError(t, err)

	fn := cs.Operations[opIndex(cs, "HelloFunction")]
	env, ok := fn.Resource.Attributes["environment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "debug", env["RUST_LOG"])
	assert.Equal(t, "1", env["RUST_BACKTRACE"])
}

func TestPlanRejectsCycle(t *testing.T) {
	m := helloworldManifest()
	m.Resources[0].DependsOn = []string{"InvokePermission"}

	_, err := Plan(m, &state.State{}, Options{})
	assert.ErrorIs(t, err, waskit.ErrDependencyCycle)
}
