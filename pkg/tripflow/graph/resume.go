package graph

import (
	"encoding/json"
	"fmt"

	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
)

// Resume continues execution from the latest checkpoint for a run.
//
// For a run suspended by an interrupt, the latest checkpoint records
// the suspending node as its own successor, so Resume re-executes that
// node. With WithResumeValue, the node's Suspend call returns the
// supplied value instead of suspending again.
//
// Example:
//
//	result, err := compiled.Resume(ctx, store, "trip-123",
//	    graph.WithResumeValue(answer))
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, runID string, opts ...ResumeOption) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	infos, err := store.List(ctx, runID)
	if err != nil {
		return zero, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		return zero, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
	}

	latest := infos[len(infos)-1]
	data, err := store.Load(ctx, runID, latest.NodeID)
	if err != nil {
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}

	return cg.resumeFromCheckpoint(ctx, store, runID, data, &cfg, "")
}

// ResumeFrom continues execution from the checkpoint at a specific node
// rather than the latest. Combined with WithReplay and WithResumeValue
// it re-enters a past suspension point with a new answer, which is how
// follow-up research rounds are driven after a run has completed.
func (cg *CompiledGraph[S]) ResumeFrom(ctx Context, store checkpoint.Store, runID, nodeID string, opts ...ResumeOption) (S, error) {
	var zero S

	if ctx == nil {
		return zero, ErrNilContext
	}

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := store.Load(ctx, runID, nodeID)
	if err != nil {
		if err == checkpoint.ErrNotFound {
			return zero, fmt.Errorf("%w: %s at node %s", ErrNoCheckpoints, runID, nodeID)
		}
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}

	return cg.resumeFromCheckpoint(ctx, store, runID, data, &cfg, nodeID)
}

// resumeFromCheckpoint deserializes a checkpoint and continues the run.
// replayAt overrides the replay target for ResumeFrom; empty means the
// checkpoint's own node.
func (cg *CompiledGraph[S]) resumeFromCheckpoint(ctx Context, store checkpoint.Store, runID string, data []byte, cfg *resumeConfig, replayAt string) (S, error) {
	var zero S

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	startNode := cp.NextNode
	if cfg.replayNode {
		startNode = cp.NodeID
		if replayAt != "" {
			startNode = replayAt
		}
	}
	if startNode != End && !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	runCfg := defaultRunConfig()
	for _, opt := range cfg.runOpts {
		opt(&runCfg)
	}
	runCfg.store = store
	runCfg.runID = runID
	runCfg.sequence = cp.Sequence

	ec := asExecutionContext(ctx)
	if cfg.hasResumeValue {
		ec = ec.withResume(cfg.resumeValue)
	}

	return cg.runFrom(ec, state, startNode, &runCfg)
}
