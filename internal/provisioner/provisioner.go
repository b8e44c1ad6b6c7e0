// Package provisioner executes a ChangeSet against a Provider.
//
// Operations run strictly in ChangeSet order, which the planner guarantees
// is topological: a permission grant is only ever created after the function
// and route it references. Failure stops the run immediately; whatever had
// committed stays in the state record (no rollback), and the operator
// re-runs apply after fixing the cause.
package provisioner

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	waskit "github.com/waskit/waskit"
	"github.com/waskit/waskit/internal/graph"
	"github.com/waskit/waskit/internal/state"
)

// Provider creates, updates and deletes concrete resources. Attributes
// arrive with all reference placeholders resolved. The returned map holds
// the identifiers the provider assigned (ARNs, IDs, URLs).
type Provider interface {
	Create(ctx context.Context, res waskit.Resource) (map[string]any, error)
	Update(ctx context.Context, res waskit.Resource, prior waskit.AppliedResource) (map[string]any, error)
	Delete(ctx context.Context, res waskit.AppliedResource) error
}

// Provisioner applies ChangeSets, mutating the state record in place so a
// mid-run failure leaves the record describing exactly what exists.
type Provisioner struct {
	Provider Provider
	Logger   *log.Logger
}

// Apply executes every operation in order. It returns the number of
// operations that committed; on error that count tells the operator how far
// the run got.
func (p *Provisioner) Apply(ctx context.Context, cs waskit.ChangeSet, st *state.State) (int, error) {
	logger := p.logger()
	applied := 0

	for _, op := range cs.Operations {
		switch op.Kind {
		case waskit.OpCreate, waskit.OpUpdate:
			resolved, err := p.resolve(op.Resource, st)
			if err != nil {
				return applied, fmt.Errorf("%w: %s %s: %v", waskit.ErrProviderRejected, op.Kind, op.Resource.ID, err)
			}

			var assigned map[string]any
			if op.Kind == waskit.OpCreate {
				logger.Info("creating resource", "id", op.Resource.ID, "type", op.Resource.Type)
				assigned, err = p.Provider.Create(ctx, resolved)
			} else {
				prior, _ := st.Get(op.Resource.ID)
				logger.Info("updating resource", "id", op.Resource.ID, "type", op.Resource.Type, "changes", len(op.Changes))
				assigned, err = p.Provider.Update(ctx, resolved, prior)
			}
			if err != nil {
				return applied, fmt.Errorf("%w: %s %s: %v", waskit.ErrProviderRejected, op.Kind, op.Resource.ID, err)
			}

			st.Put(waskit.AppliedResource{
				ID:         op.Resource.ID,
				Type:       op.Resource.Type,
				Declared:   op.Resource.Attributes,
				Attributes: merge(resolved.Attributes, assigned),
				DependsOn:  op.Resource.DependsOn,
			})

		case waskit.OpDelete:
			prior, ok := st.Get(op.Resource.ID)
			if !ok {
				// Already gone; nothing to undo.
				continue
			}
			logger.Info("deleting resource", "id", op.Resource.ID, "type", op.Resource.Type)
			if err := p.Provider.Delete(ctx, prior); err != nil {
				return applied, fmt.Errorf("%w: delete %s: %v", waskit.ErrProviderRejected, op.Resource.ID, err)
			}
			st.Remove(op.Resource.ID)

		default:
			return applied, fmt.Errorf("unknown operation kind %q", op.Kind)
		}
		applied++
	}

	return applied, nil
}

// DestroyPlan builds the ChangeSet that tears down everything in the state
// record, dependents first.
func DestroyPlan(st *state.State) waskit.ChangeSet {
	var cs waskit.ChangeSet
	for i := len(st.Resources) - 1; i >= 0; i-- {
		res := st.Resources[i]
		cs.Operations = append(cs.Operations, waskit.Operation{
			Kind: waskit.OpDelete,
			Resource: waskit.Resource{
				ID:         res.ID,
				Type:       res.Type,
				Attributes: res.Attributes,
				DependsOn:  res.DependsOn,
			},
		})
	}
	return cs
}

// resolve substitutes ${Resource.attr} placeholders against resources
// already in the state record. Topological order guarantees referenced
// resources were applied earlier in this run or a previous one.
func (p *Provisioner) resolve(res waskit.Resource, st *state.State) (waskit.Resource, error) {
	resolved, err := graph.ResolveRefs(res.Attributes, func(id, attr string) (string, bool) {
		return st.Attribute(id, attr)
	})
	if err != nil {
		return waskit.Resource{}, err
	}
	attrs, _ := resolved.(map[string]any)
	return waskit.Resource{
		ID:         res.ID,
		Type:       res.Type,
		Attributes: attrs,
		DependsOn:  res.DependsOn,
	}, nil
}

func merge(resolved, assigned map[string]any) map[string]any {
	out := make(map[string]any, len(resolved)+len(assigned))
	for k, v := range resolved {
		out[k] = v
	}
	for k, v := range assigned {
		out[k] = v
	}
	return out
}

func (p *Provisioner) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
