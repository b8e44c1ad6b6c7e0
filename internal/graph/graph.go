// Package graph holds the in-memory dependency DAG of declared resources.
//
// Nodes are resources looked up by logical ID. Edges are "must exist before"
// relationships derived from explicit depends_on entries and from
// ${Other.attr} references inside attribute values. Apply order is the
// topological order of this graph; destroy order is its reverse.
package graph

import (
	"fmt"
	"io"
	"sort"

	"github.com/emicklei/dot"

	waskit "github.com/waskit/waskit"
)

// Graph is a directed acyclic graph of resources keyed by ID.
type Graph struct {
	// order tracks IDs in insertion order for deterministic output.
	order     []string
	resources map[string]waskit.Resource
	// deps maps a resource ID to the IDs it depends on.
	deps map[string][]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		resources: make(map[string]waskit.Resource),
		deps:      make(map[string][]string),
	}
}

// FromResources builds a graph from declared resources, deriving edges from
// depends_on and attribute references, and validates it: duplicate IDs,
// unknown reference targets and cycles are all errors.
func FromResources(resources []waskit.Resource) (*Graph, error) {
	g := New()
	for _, res := range resources {
		if err := g.Add(res); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Add inserts a resource. Dependency edges are derived immediately.
func (g *Graph) Add(res waskit.Resource) error {
	if res.ID == "" {
		return fmt.Errorf("resource of type %q has no id", res.Type)
	}
	if _, exists := g.resources[res.ID]; exists {
		return fmt.Errorf("duplicate resource id %q", res.ID)
	}
	g.resources[res.ID] = res
	g.order = append(g.order, res.ID)

	seen := make(map[string]bool)
	var deps []string
	for _, d := range res.DependsOn {
		if !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	for _, ref := range FindRefs(res.Attributes) {
		if !seen[ref.Resource] {
			seen[ref.Resource] = true
			deps = append(deps, ref.Resource)
		}
	}
	sort.Strings(deps)
	g.deps[res.ID] = deps
	return nil
}

// Resource returns the resource with the given ID.
func (g *Graph) Resource(id string) (waskit.Resource, bool) {
	res, ok := g.resources[id]
	return res, ok
}

// Len returns the number of resources.
func (g *Graph) Len() int { return len(g.order) }

// IDs returns all resource IDs in insertion order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the IDs the given resource depends on.
func (g *Graph) Dependencies(id string) []string {
	out := make([]string, len(g.deps[id]))
	copy(out, g.deps[id])
	return out
}

// Validate checks that every dependency edge points at a declared resource
// and that the graph is acyclic.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, dep := range g.deps[id] {
			if _, ok := g.resources[dep]; !ok {
				return fmt.Errorf("resource %q references undeclared resource %q", id, dep)
			}
		}
	}
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns the IDs in apply order (dependencies first) using
// Kahn's algorithm. Ties break by insertion order, so the result is
// deterministic. A cycle surfaces as *waskit.CycleError.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if len(g.order) == 0 {
		return nil, nil
	}

	// remaining counts unsatisfied dependencies, so sources are resources
	// that depend on nothing.
	remaining := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, id := range g.order {
		remaining[id] = len(g.deps[id])
		for _, dep := range g.deps[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if remaining[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, dep := range dependents[id] {
			remaining[dep]--
			if remaining[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) != len(g.order) {
		var cycle []string
		for _, id := range g.order {
			if remaining[id] > 0 {
				cycle = append(cycle, id)
			}
		}
		return nil, &waskit.CycleError{Cycle: cycle}
	}
	return result, nil
}

// ReverseTopologicalOrder returns the IDs in destroy order (dependents
// first).
func (g *Graph) ReverseTopologicalOrder() ([]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Format specifies the output format for graph export.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Export writes the dependency graph to w in the requested format.
func (g *Graph) Export(w io.Writer, format Format) error {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")
	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	for _, id := range g.order {
		res := g.resources[id]
		n := graph.Node(id)
		n.Label(id + "\\n[" + res.Type + "]")
	}
	for _, id := range g.order {
		for _, dep := range g.deps[id] {
			if _, ok := g.resources[dep]; !ok {
				continue
			}
			graph.Edge(graph.Node(id), graph.Node(dep))
		}
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}
	_, err := w.Write([]byte(output))
	return err
}
