package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/manifest"
	"github.com/waskit/waskit/internal/planner"
	"github.com/waskit/waskit/internal/state"
)

func helloworldManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:   "helloworld",
		Stage:  "test",
		Region: "us-east-1",
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

// recordingProvider wraps StubProvider and records call order, optionally
// rejecting one resource.
type recordingProvider struct {
	StubProvider
	created  []string
	deleted  []string
	rejectID string
}

func (r *recordingProvider) Create(ctx context.Context, res waskit.Resource) (map[string]any, error) {
	if res.ID == r.rejectID {
		return nil, fmt.Errorf("access denied for %s", res.ID)
	}
	r.created = append(r.created, res.ID)
	return r.StubProvider.Create(ctx, res)
}

func (r *recordingProvider) Delete(ctx context.Context, res waskit.AppliedResource) error {
	r.deleted = append(r.deleted, res.ID)
	return r.StubProvider.Delete(ctx, res)
}

func index(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestApplyFullDeploy(t *testing.T) {
	m := helloworldManifest()
	cs, err := planner.Plan(m, &state.State{}, planner.Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	provider := &recordingProvider{StubProvider: StubProvider{Region: "us-east-1"}}
	p := &Provisioner{Provider: provider}
	st := &state.State{Name: m.Name, Stage: m.Stage, Region: m.Region}

	applied, err := p.Apply(context.Background(), cs, st)
	require.NoError(t, err)
	assert.Equal(t, 6, applied)

	// Permission created strictly after both the function and the route.
	perm := index(provider.created, "InvokePermission")
	assert.Greater(t, perm, index(provider.created, "HelloFunction"))
	assert.Greater(t, perm, index(provider.created, "HelloRoute"))

	// References were resolved against earlier applied resources.
	fn, ok := st.Get("HelloFunction")
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::000000000000:role/helloworld-role", fn.Attributes["role"])
	// Declared form keeps the placeholder for future diffs.
	assert.Equal(t, "${ExecutionRole.arn}", fn.Declared["role"])

	url, ok := st.Attribute("Stage", "invoke_url")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(url, ".amazonaws.com/test"), "invoke_url %q", url)
}

func TestApplyIdempotentRedeploy(t *testing.T) {
	m := helloworldManifest()
	opts := planner.Options{ArtifactHash: "hash-1"}
	p := &Provisioner{Provider: &StubProvider{}}
	st := &state.State{}

	cs, err := planner.Plan(m, st, opts)
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), cs, st)
	require.NoError(t, err)

	// Same manifest, same artifact hash: the second plan must be empty.
	again, err := planner.Plan(m, st, opts)
	require.NoError(t, err)
	assert.True(t, again.Empty(), "redeploy with unchanged artifact must be a no-op, got %+v", again.Operations)
}

func TestApplyRejectionLeavesNoDanglingDependents(t *testing.T) {
	m := helloworldManifest()
	cs, err := planner.Plan(m, &state.State{}, planner.Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	// The provider rejects the IAM role: nothing that depends on it may
	// have been created.
	provider := &recordingProvider{rejectID: "ExecutionRole"}
	p := &Provisioner{Provider: provider}
	st := &state.State{}

	_, err = p.Apply(context.Background(), cs, st)
	require.Error(t, err)
	assert.True(t, errors.Is(err, waskit.ErrProviderRejected))

	_, fnCreated := st.Get("HelloFunction")
	assert.False(t, fnCreated, "function must not exist after its role was rejected")
	_, permCreated := st.Get("InvokePermission")
	assert.False(t, permCreated)
	assert.Equal(t, -1, index(provider.created, "HelloFunction"))
}

func TestApplyPartialStateRetained(t *testing.T) {
	m := helloworldManifest()
	cs, err := planner.Plan(m, &state.State{}, planner.Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	// Reject the permission grant, the last-but-one resource.
	provider := &recordingProvider{rejectID: "InvokePermission"}
	p := &Provisioner{Provider: provider}
	st := &state.State{}

	applied, err := p.Apply(context.Background(), cs, st)
	require.Error(t, err)
	assert.Equal(t, 4, applied)

	// Everything applied before the failure stays recorded.
	_, ok := st.Get("HelloFunction")
	assert.True(t, ok)
	_, ok = st.Get("HelloRoute")
	assert.True(t, ok)
}

func TestDestroyPlanReversesApplyOrder(t *testing.T) {
	m := helloworldManifest()
	cs, err := planner.Plan(m, &state.State{}, planner.Options{ArtifactHash: "hash-1"})
	require.NoError(t, err)

	provider := &recordingProvider{}
	p := &Provisioner{Provider: provider}
	st := &state.State{}
	_, err = p.Apply(context.Background(), cs, st)
	require.NoError(t, err)

	down := DestroyPlan(st)
	applied, err := p.Apply(context.Background(), down, st)
	require.NoError(t, err)
	assert.Equal(t, 6, applied)
	assert.True(t, st.Empty())

	// The permission grant goes away before the function it references.
	assert.Less(t, index(provider.deleted, "InvokePermission"), index(provider.deleted, "HelloFunction"))
}

func TestStubProviderStableIdentifiers(t *testing.T) {
	provider := &StubProvider{Region: "us-east-1"}
	res := waskit.Resource{ID: "API", Type: waskit.TypeRestAPI, Attributes: map[string]any{"name": "helloworld-api"}}

	first, err := provider.Create(context.Background(), res)
	require.NoError(t, err)
	second, err := provider.Create(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, first["id"], second["id"])
}

func TestStubProviderUnknownType(t *testing.T) {
	provider := &StubProvider{}
	_, err := provider.Create(context.Background(), waskit.Resource{ID: "X", Type: "queue.Fifo"})
	assert.Error(t, err)
}
