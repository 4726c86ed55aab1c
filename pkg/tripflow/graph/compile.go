package graph

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails; multiple errors are joined.
//
// Validation checks (in order):
//  1. Entry point must be set and reference an existing node
//  2. All edge sources must reference existing nodes
//  3. All edge targets must reference existing nodes or End
//  4. A path from entry to End must exist
//
// Unreachable nodes are logged as warnings but do not fail compilation:
// routers can return any node at runtime.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, targets := range g.edges {
		if from != End {
			if _, exists := g.nodes[from]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
			}
		}
		for _, to := range targets {
			if to != End {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
				}
			}
		}
	}

	for from := range g.routers {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: router source '%s' does not exist", ErrNodeNotFound, from))
		}
	}

	if g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.build(), nil
}

// hasPathToEnd checks reachability of End from the entry point.
// Nodes with routers are assumed to potentially reach End, since the
// router may return it at runtime.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[string]bool{End: true}

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from := range g.routers {
			if !canReachEnd[from] {
				canReachEnd[from] = true
				changed = true
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := make(map[string]bool)
	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			if target != End && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		// A router can return any node ID, so everything becomes reachable.
		if _, hasRouter := g.routers[current]; hasRouter {
			for nodeID := range g.nodes {
				if !reachable[nodeID] {
					reachable[nodeID] = true
					queue = append(queue, nodeID)
				}
			}
		}
	}

	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// build creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) build() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
	}

	routers := make(map[string]RouterFunc[S], len(g.routers))
	for from, router := range g.routers {
		routers[from] = router
	}

	predecessors := make(map[string][]string)
	for from, targets := range edges {
		for _, to := range targets {
			if to != End {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	forks := make(map[string]*fork)
	for from, targets := range edges {
		if _, hasRouter := routers[from]; hasRouter || len(targets) < 2 {
			continue
		}
		forks[from] = &fork{
			nodeID:   from,
			branches: append([]string(nil), targets...),
			joinID:   findJoin(targets, edges),
		}
	}

	return &CompiledGraph[S]{
		nodes:        nodes,
		edges:        edges,
		routers:      routers,
		entryPoint:   g.entryPoint,
		predecessors: predecessors,
		forks:        forks,
	}
}

// findJoin finds the join point for a set of parallel branches: the node
// closest to the branches that is reachable from every one of them.
// Returns "" if the branches never converge before End.
func findJoin(branches []string, edges map[string][]string) string {
	if len(branches) == 0 {
		return ""
	}
	if len(branches) == 1 {
		return branches[0]
	}

	common := reachableFrom(branches[0], edges)
	for _, branch := range branches[1:] {
		r := reachableFrom(branch, edges)
		for node := range common {
			if !r[node] {
				delete(common, node)
			}
		}
	}

	if len(common) == 0 {
		return ""
	}

	// BFS from the first branch to find the closest common node.
	if common[branches[0]] {
		return branches[0]
	}
	visited := map[string]bool{branches[0]: true}
	queue := []string{branches[0]}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges[current] {
			if next == End {
				continue
			}
			if common[next] {
				return next
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return ""
}

// reachableFrom returns all nodes reachable from start via simple edges,
// including start itself.
func reachableFrom(start string, edges map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range edges[current] {
			if next != End && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	return reachable
}
