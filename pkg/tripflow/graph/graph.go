package graph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use New to create a graph, then chain AddNode, AddEdge, AddRouter,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph
// that can be shared across runs.
//
// Example:
//
//	g := graph.New[State]().
//	    AddNode("estimate", estimateNode).
//	    AddNode("plan", planNode).
//	    AddEdge("estimate", "plan").
//	    AddEdge("plan", graph.End).
//	    SetEntry("estimate")
//
//	compiled, err := g.Compile()
type Graph[S any] struct {
	mu         sync.RWMutex
	nodes      map[string]NodeFunc[S]
	edges      map[string][]string
	routers    map[string]RouterFunc[S]
	entryPoint string
}

// New creates a new graph builder for state type S.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:   make(map[string]NodeFunc[S]),
		edges:   make(map[string][]string),
		routers: make(map[string]RouterFunc[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty, reserved ("END", "__end__", case-insensitive), or
//     contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("graph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("graph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("graph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("graph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("graph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or graph.End.
// A node with more than one outgoing edge becomes a fork point: all
// targets execute in parallel and converge at their common join node.
//
// Edge validation happens at Compile() time, not here, so edges can be
// added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddRouter adds a conditional edge where a RouterFunc determines the
// next node(s) at runtime based on state.
//
// The router should return valid node IDs or a single graph.End.
// A node can have either simple edges or a router, not both. If both
// are present, the router takes precedence.
func (g *Graph[S]) AddRouter(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("graph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.routers[from] = router
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile(). Entry point validation happens
// at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
