// Package observability provides structured logging, metrics, and
// tracing for trip planning runs.
//
// Logging uses slog. Metrics and tracing use OpenTelemetry against the
// global providers; both degrade to no-ops when no provider is
// configured.
package observability

import (
	"log/slog"
	"time"
)

// LogRunStart logs the start of a planning run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, runID string, duration time.Duration, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunSuspended logs a run pausing for external input.
func LogRunSuspended(logger *slog.Logger, runID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("run suspended",
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, runID string, err error, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Error("run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// LogNodeError logs node execution failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogInterrupt logs a node suspending the run.
func LogInterrupt(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("interrupt raised",
		slog.String("node_id", nodeID),
	)
}

// LogCheckpoint logs checkpoint persistence.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogFanOut logs completion of a parallel research fan-out.
func LogFanOut(logger *slog.Logger, from, join string, branches int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("fan-out completed",
		slog.String("fork_node", from),
		slog.String("join_node", join),
		slog.Int("branches", branches),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}
