package graph

// End is the terminal node identifier.
// Use this as an edge target to indicate the workflow should terminate.
const End = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state, and return the
// updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func estimate(ctx graph.Context, s State) (State, error) {
//	    s.Budget = computeBudget(s)
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node(s) based on state.
// It is used for conditional edges where the route depends on runtime state.
//
// The router returns one or more node IDs, or a single-element slice
// containing graph.End. Returning more than one target schedules those
// nodes as a parallel fan-out whose join point is computed at runtime.
// Returning an empty slice or an unknown node ID causes a runtime error.
type RouterFunc[S any] func(ctx Context, state S) []string

// Mergeable is an optional interface for state types that participate in
// parallel fan-out execution.
//
// If the state type does not implement Mergeable, the executor falls back
// to JSON marshaling for cloning and keeps the pre-fork state on join,
// discarding branch writes. Workflow states that accumulate results from
// parallel branches must implement it.
type Mergeable[S any] interface {
	// Clone creates an independent copy of the state for a parallel branch.
	Clone(branchID string) S

	// Merge combines the states from all completed branches.
	// The receiver is the state at the fork point. The map holds
	// branchID -> final state of that branch at the join point.
	Merge(branches map[string]S) S
}
