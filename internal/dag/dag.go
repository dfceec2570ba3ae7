// Package dag provides a directed acyclic graph over view names.
// It orders view-inheritance relationships (alias -> base, nested child ->
// parent) so table data can be propagated dependencies-first, and detects
// cyclic alias declarations before they can loop the resolver.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph of view names. An edge base -> dependent means
// the dependent view inherits table data from the base view.
type Graph struct {
	nodes   map[string]bool
	edges   map[string][]string // base -> dependents
	parents map[string][]string // dependent -> bases
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]bool),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a view to the graph. Adding an existing view is a no-op.
func (g *Graph) AddNode(name string) {
	if !g.nodes[name] {
		g.nodes[name] = true
		g.edges[name] = nil
		g.parents[name] = nil
	}
}

// AddEdge records that dependent inherits from base. Both views are added
// if missing. Self-loops are rejected.
func (g *Graph) AddEdge(base, dependent string) error {
	if base == dependent {
		return fmt.Errorf("self-referential view %q", base)
	}
	g.AddNode(base)
	g.AddNode(dependent)

	if !contains(g.edges[base], dependent) {
		g.edges[base] = append(g.edges[base], dependent)
	}
	if !contains(g.parents[dependent], base) {
		g.parents[dependent] = append(g.parents[dependent], base)
	}
	return nil
}

// Parents returns the views the given view inherits from.
func (g *Graph) Parents(name string) []string {
	return g.parents[name]
}

// Children returns the views that inherit from the given view.
func (g *Graph) Children(name string) []string {
	return g.edges[name]
}

// NodeCount returns the number of views in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of inheritance edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, deps := range g.edges {
		count += len(deps)
	}
	return count
}

// HasCycle reports whether the graph contains a cycle, along with one
// cycle path for diagnostics.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cyclePath []string

	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		onStack[name] = true

		for _, next := range g.edges[name] {
			if !visited[next] {
				cameFrom[next] = name
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cyclePath = []string{next}
				for cur := name; cur != next; cur = cameFrom[cur] {
					cyclePath = append([]string{cur}, cyclePath...)
				}
				cyclePath = append([]string{next}, cyclePath...)
				return true
			}
		}

		onStack[name] = false
		return false
	}

	for _, name := range g.sortedNodes() {
		if !visited[name] {
			if dfs(name) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// TopologicalSort returns view names with every base before its
// dependents. Returns an error when the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("cyclic view inheritance: %v", path)
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, base := range g.parents[name] {
			visit(base)
		}
		result = append(result, name)
	}

	for _, name := range g.sortedNodes() {
		visit(name)
	}
	return result, nil
}

func (g *Graph) sortedNodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
