package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
//
// On success, returns the state after the last node executed before End.
// On failure, returns the state at the point of failure.
// If a node suspends via Suspend, the returned error is a *Interrupt and
// the returned state is the state at the suspension point; the run can
// be continued with Resume.
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.store != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	return cg.runFrom(ctx, state, cg.entryPoint, &cfg)
}

// runFrom executes the graph starting from a specific node.
// Shared by Run and Resume.
func (cg *CompiledGraph[S]) runFrom(ctx Context, state S, startNode string, cfg *runConfig) (result S, runErr error) {
	ec := asExecutionContext(ctx)
	start := time.Now()

	observability.LogRunStart(ec.Logger(), ec.RunID())

	var runSpan trace.Span
	if cfg.spans != nil {
		var spanCtx context.Context
		spanCtx, runSpan = cfg.spans.StartRunSpan(ec.Context, ec.RunID())
		ec = &executionContext{Context: spanCtx, logger: ec.logger, runID: ec.runID, nodeID: ec.nodeID, resume: ec.resume}
		defer func() {
			cfg.spans.EndSpan(runSpan, runErr)
		}()
	}

	result, nodeCount, runErr := cg.execute(ec, state, startNode, cfg)

	duration := time.Since(start)
	cfg.metrics.RecordRun(ec, runErr == nil || isInterrupt(runErr), duration)

	switch {
	case runErr == nil:
		observability.LogRunComplete(ec.Logger(), ec.RunID(), duration, nodeCount)
	case isInterrupt(runErr):
		var intr *Interrupt
		errors.As(runErr, &intr)
		observability.LogRunSuspended(ec.Logger(), ec.RunID(), intr.NodeID)
	default:
		observability.LogRunError(ec.Logger(), ec.RunID(), runErr, duration)
	}

	return result, runErr
}

// execute drives the main node loop. Returns the final state, the number
// of nodes executed, and any error (including *Interrupt).
func (cg *CompiledGraph[S]) execute(ec *executionContext, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	prevNode := ""
	iterations := 0
	nodeCount := 0

	for current != End {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{Max: cfg.maxIterations, LastNodeID: current}
		}

		select {
		case <-ec.Done():
			return state, nodeCount, &CancellationError{NodeID: current, Cause: ec.Err()}
		default:
		}

		nodeStart := time.Now()
		nodeCtx, nodeSpan := cg.startNode(ec, current, cfg)

		next, nodeErr := func() ([]string, error) {
			var err error
			state, err = cg.executeNode(nodeCtx, current, state)
			if err != nil {
				return nil, err
			}
			return cg.nextNodes(nodeCtx, state, current)
		}()

		nodeDuration := time.Since(nodeStart)
		cfg.metrics.RecordNode(ec, current, nodeDuration, nodeErr)
		if cfg.spans != nil {
			cfg.spans.EndSpan(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			var intr *Interrupt
			if errors.As(nodeErr, &intr) {
				// Checkpoint the pre-node state with the suspending node
				// as the resumption target, then surface the interrupt.
				if err := cg.saveCheckpoint(ec, cfg, current, prevNode, state, current); err != nil {
					return state, nodeCount, err
				}
				cfg.metrics.RecordInterrupt(ec, current)
				observability.LogInterrupt(ec.Logger(), current)
				return state, nodeCount, intr
			}
			observability.LogNodeError(ec.Logger(), current, nodeErr)
			return state, nodeCount, nodeErr
		}

		observability.LogNodeComplete(ec.Logger(), current, nodeDuration)
		nodeCount++

		if len(next) > 1 {
			// Parallel fan-out; rejoin before continuing the main loop.
			merged, join, branchCount, err := cg.fanOut(ec, current, next, state, cfg)
			if err != nil {
				return state, nodeCount, err
			}
			state = merged
			nodeCount += branchCount

			if err := cg.saveCheckpoint(ec, cfg, current, prevNode, state, join); err != nil {
				return state, nodeCount, err
			}
			prevNode = current
			current = join
			continue
		}

		if err := cg.saveCheckpoint(ec, cfg, current, prevNode, state, next[0]); err != nil {
			return state, nodeCount, err
		}
		prevNode = current
		current = next[0]
	}

	return state, nodeCount, nil
}

// startNode derives the node-scoped context and opens a node span.
func (cg *CompiledGraph[S]) startNode(ec *executionContext, nodeID string, cfg *runConfig) (*executionContext, trace.Span) {
	nodeCtx := ec.withNodeID(nodeID)
	observability.LogNodeStart(nodeCtx.Logger(), nodeID)

	var span trace.Span
	if cfg.spans != nil {
		var spanCtx context.Context
		spanCtx, span = cfg.spans.StartNodeSpan(nodeCtx.Context, nodeID)
		nodeCtx.Context = spanCtx
	}
	return nodeCtx, span
}

// executeNode executes a single node with panic recovery.
func (cg *CompiledGraph[S]) executeNode(ctx *executionContext, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{NodeID: nodeID, Value: r, Stack: string(debug.Stack())}
		}
	}()

	result, err = fn(ctx, state)
	if err != nil {
		var intr *Interrupt
		if errors.As(err, &intr) {
			return result, intr
		}
		return result, &NodeError{NodeID: nodeID, Op: "execute", Err: err}
	}

	return result, nil
}

// nextNodes determines the next node(s) to execute.
// Routers take precedence over simple edges.
func (cg *CompiledGraph[S]) nextNodes(ctx *executionContext, state S, current string) ([]string, error) {
	if router, exists := cg.getRouter(current); exists {
		targets := router(ctx, state)
		if len(targets) == 0 {
			return nil, &RouterError{FromNode: current, Returned: targets, Err: ErrInvalidRouterResult}
		}
		for _, t := range targets {
			if t == End && len(targets) > 1 {
				return nil, &RouterError{FromNode: current, Returned: targets, Err: ErrInvalidRouterResult}
			}
			if t != End {
				if _, ok := cg.getNode(t); !ok {
					return nil, &RouterError{FromNode: current, Returned: targets, Err: ErrRouterTargetNotFound}
				}
			}
		}
		return targets, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		return nil, &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return edges, nil
}

// saveCheckpoint persists the state after a completed step.
// No-op when checkpointing is disabled. Failures are fatal: a run that
// cannot checkpoint cannot honor its resume contract.
func (cg *CompiledGraph[S]) saveCheckpoint(ec *executionContext, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	if cfg.store == nil {
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return &CheckpointError{NodeID: nodeID, Op: "serialize", Err: err}
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithPrevNode(prevNodeID)

	data, err := cp.Marshal()
	if err != nil {
		return &CheckpointError{NodeID: nodeID, Op: "marshal", Err: err}
	}

	if err := cfg.store.Save(ec, cfg.runID, nodeID, data); err != nil {
		return &CheckpointError{NodeID: nodeID, Op: "save", Err: err}
	}

	observability.LogCheckpoint(ec.Logger(), nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ec, nodeID, int64(len(data)))
	return nil
}

func isInterrupt(err error) bool {
	var intr *Interrupt
	return errors.As(err, &intr)
}
