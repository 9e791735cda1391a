// Package dag provides directed graph operations for module inclusion.
// It supports cycle detection with full path reporting and topological
// sorting, both deterministic across runs.
package dag

import (
	"fmt"
	"sort"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (module identity)
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph represents a directed graph of inclusion references.
// Edges run from the including module to the included one.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // includer -> included
	parents map[string][]string // included -> includers
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data any) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Data: data}
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	} else {
		// Update data if node already exists
		g.nodes[id].Data = data
	}
}

// AddEdge adds a directed edge from includer to included. Self-edges are
// accepted here; cycle detection reports them as one-step cycles.
func (g *Graph) AddEdge(fromID, toID string) error {
	if _, exists := g.nodes[fromID]; !exists {
		return fmt.Errorf("node %q does not exist", fromID)
	}
	if _, exists := g.nodes[toID]; !exists {
		return fmt.Errorf("node %q does not exist", toID)
	}

	// Avoid duplicate edges
	if !contains(g.edges[fromID], toID) {
		g.edges[fromID] = append(g.edges[fromID], toID)
	}
	if !contains(g.parents[toID], fromID) {
		g.parents[toID] = append(g.parents[toID], fromID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetChildren returns the modules included by a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetParents returns the modules including a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// sortedIDs returns all node IDs in lexical order, for deterministic walks.
func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cycles returns every cycle reachable through a back-edge, each as the
// full path including the repeated node (e.g. [a b a]). Validation wants
// all violations in one pass, so this does not stop at the first.
func (g *Graph) Cycles() [][]string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // child -> parent on the DFS path

	var cycles [][]string

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if recStack[childID] {
				// Found a back-edge, reconstruct the path
				cycle := []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{childID}, cycle...)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[childID] {
				path[childID] = id
				dfs(childID)
			}
		}

		recStack[id] = false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// HasCycle returns true if the graph contains a cycle, along with the
// first cycle path in deterministic order.
func (g *Graph) HasCycle() (bool, []string) {
	cycles := g.Cycles()
	if len(cycles) == 0 {
		return false, nil
	}
	return true, cycles[0]
}

// TopologicalSort returns nodes so that included modules come before
// their includers. Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, childID := range g.edges[id] {
			visit(childID)
		}

		result = append(result, g.nodes[id])
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}

	return result, nil
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
