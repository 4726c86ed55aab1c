// Package checkpoint provides durable snapshot storage for workflow runs.
//
// Every completed step of a run is persisted as a checkpoint, so a
// suspended or crashed run can be resumed from its last known state.
// Three backends are provided: MemoryStore for tests, SQLiteStore for
// single-process deployments, and RedisStore for shared deployments.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints for suspend/resume and crash recovery.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint for a run at a specific node.
	// Overwrites any existing checkpoint for (runID, nodeID).
	Save(ctx context.Context, runID, nodeID string, data []byte) error

	// Load retrieves the checkpoint for (runID, nodeID).
	// Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, runID, nodeID string) ([]byte, error)

	// List returns metadata for all checkpoints of a run, ordered by
	// sequence. Returns an empty slice (not an error) for unknown runs.
	List(ctx context.Context, runID string) ([]Info, error)

	// Delete removes a specific checkpoint. Nil if absent.
	Delete(ctx context.Context, runID, nodeID string) error

	// DeleteRun removes all checkpoints for a run. Nil if absent.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info is checkpoint metadata without the serialized state.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
