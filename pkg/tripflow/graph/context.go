package graph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to nodes.
// It extends context.Context with workflow-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived
// contexts for each node with an updated NodeID and an enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node
	// context. Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the node currently being executed.
	// Empty string before execution starts.
	NodeID() string
}

// resumeSlot carries the caller-supplied answer to a prior interrupt.
// It is shared (by pointer) across the derived contexts of one resume
// pass so the value is consumed at most once.
type resumeSlot struct {
	value any
	used  bool
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	nodeID string
	resume *resumeSlot
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) NodeID() string       { return c.nodeID }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context. The executor enriches it
// with run_id and node_id fields per node.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithRunID sets the run identifier for the context.
// If not set, a UUID is auto-generated. The same identifier keys the
// run's checkpoints when checkpointing is enabled.
func WithRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := graph.NewContext(context.Background(),
//	    graph.WithLogger(logger),
//	    graph.WithRunID("trip-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a derived context with the node ID set and the
// logger enriched. The resume slot is shared, not copied.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID),
		runID:   c.runID,
		nodeID:  nodeID,
		resume:  c.resume,
	}
}

// withResume returns a derived context carrying a resume value.
func (c *executionContext) withResume(value any) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger,
		runID:   c.runID,
		nodeID:  c.nodeID,
		resume:  &resumeSlot{value: value},
	}
}

// asExecutionContext unwraps a Context into the internal implementation,
// wrapping foreign implementations so the executor can always derive
// node-scoped contexts.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context: ctx,
		logger:  ctx.Logger(),
		runID:   ctx.RunID(),
		nodeID:  ctx.NodeID(),
	}
}
