package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
)

// branchResult holds the outcome of a single branch execution.
type branchResult[S any] struct {
	branchID  string
	state     S
	nodeCount int
	err       error
}

// fanOut executes the targets of a fork in parallel and merges the
// branch states at the join point.
//
// Each branch gets an independent clone of the state and runs until it
// reaches the join node (or End, when the branches never reconverge).
// Interrupts are not permitted inside branches: human-facing suspension
// points must live at or after the join.
//
// Returns the merged state, the join node to continue from, and the
// number of nodes executed across all branches.
func (cg *CompiledGraph[S]) fanOut(ec *executionContext, from string, targets []string, state S, cfg *runConfig) (S, string, int, error) {
	startTime := time.Now()

	join := ""
	if f, ok := cg.forks[from]; ok && sameTargets(f.branches, targets) {
		join = f.joinID
	} else {
		join = findJoin(targets, cg.edges)
	}
	if join == "" {
		join = End
	}

	// Clone state for each branch before any branch starts.
	branchStates := make(map[string]S, len(targets))
	for _, branchID := range targets {
		cloned, err := cg.cloneState(state, branchID)
		if err != nil {
			return state, "", 0, &FanOutError{ForkNodeID: from, BranchID: branchID, Err: err}
		}
		branchStates[branchID] = cloned
	}

	results := make(chan branchResult[S], len(targets))
	var wg sync.WaitGroup

	for _, branchID := range targets {
		wg.Add(1)
		go func(bID string, bState S) {
			defer wg.Done()
			results <- cg.executeBranch(ec, bID, bState, join, cfg)
		}(branchID, branchStates[branchID])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	finished := make(map[string]S, len(targets))
	nodeCount := 0
	var firstErr *FanOutError
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = &FanOutError{ForkNodeID: from, BranchID: r.branchID, Err: r.err}
			}
			continue
		}
		finished[r.branchID] = r.state
		nodeCount += r.nodeCount
	}
	if firstErr != nil {
		return state, "", nodeCount, firstErr
	}

	merged := cg.mergeStates(state, finished)

	observability.LogFanOut(ec.Logger(), from, join, len(targets), time.Since(startTime))
	return merged, join, nodeCount, nil
}

// executeBranch runs a single branch from its start node until it
// reaches the join node or End.
func (cg *CompiledGraph[S]) executeBranch(ec *executionContext, branchID string, state S, join string, cfg *runConfig) branchResult[S] {
	current := branchID
	iterations := 0
	nodeCount := 0

	for current != join && current != End {
		iterations++
		if iterations > cfg.maxIterations {
			return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount,
				err: &MaxIterationsError{Max: cfg.maxIterations, LastNodeID: current}}
		}

		select {
		case <-ec.Done():
			return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount,
				err: &CancellationError{NodeID: current, Cause: ec.Err()}}
		default:
		}

		nodeCtx := ec.withNodeID(current)
		observability.LogNodeStart(nodeCtx.Logger(), current)
		nodeStart := time.Now()

		var err error
		state, err = cg.executeNode(nodeCtx, current, state)
		cfg.metrics.RecordNode(ec, current, time.Since(nodeStart), err)
		if err != nil {
			if isInterrupt(err) {
				// %v, not %w: a failed branch must not surface as a
				// resumable interrupt.
				err = fmt.Errorf("node %s suspended inside a parallel branch: %v", current, err)
			}
			observability.LogNodeError(nodeCtx.Logger(), current, err)
			return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount, err: err}
		}
		observability.LogNodeComplete(nodeCtx.Logger(), current, time.Since(nodeStart))
		nodeCount++

		next, err := cg.nextNodes(nodeCtx, state, current)
		if err != nil {
			return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount, err: err}
		}
		if len(next) > 1 {
			return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount,
				err: fmt.Errorf("nested fan-out at node %s is not supported", current)}
		}
		current = next[0]
	}

	return branchResult[S]{branchID: branchID, state: state, nodeCount: nodeCount}
}

// cloneState copies state for a parallel branch. Uses Mergeable.Clone
// when implemented, otherwise a JSON round trip.
func (cg *CompiledGraph[S]) cloneState(state S, branchID string) (S, error) {
	if m, ok := any(state).(Mergeable[S]); ok {
		return m.Clone(branchID), nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("clone state for branch %s: marshal: %w", branchID, err)
	}
	var clone S
	if err := json.Unmarshal(data, &clone); err != nil {
		var zero S
		return zero, fmt.Errorf("clone state for branch %s: unmarshal: %w", branchID, err)
	}
	return clone, nil
}

// mergeStates combines branch states back into one state.
// Without Mergeable the pre-fork state is kept and branch writes are
// dropped; accumulating state types must implement Merge.
func (cg *CompiledGraph[S]) mergeStates(original S, branches map[string]S) S {
	if m, ok := any(original).(Mergeable[S]); ok {
		return m.Merge(branches)
	}
	return original
}

// sameTargets reports whether two target sets contain the same node IDs.
func sameTargets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
