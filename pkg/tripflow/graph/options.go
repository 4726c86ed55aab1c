package graph

import (
	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int
	store         checkpoint.Store
	runID         string
	sequence      int
	metrics       *observability.Metrics
	spans         *observability.Spans
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 100,
		metrics:       observability.NoopMetrics(),
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 100. Prevents router loops from running forever.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithCheckpointing enables durable checkpointing for the run.
// State is persisted after every completed step under the given run ID,
// and before surfacing an Interrupt, so the run can be resumed.
func WithCheckpointing(store checkpoint.Store, runID string) RunOption {
	return func(c *runConfig) {
		c.store = store
		c.runID = runID
	}
}

// WithMetrics records run, node, and checkpoint metrics to the given
// instrument set. Defaults to no-op instruments.
func WithMetrics(m *observability.Metrics) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing emits OpenTelemetry spans for the run and each node.
func WithTracing(s *observability.Spans) RunOption {
	return func(c *runConfig) {
		c.spans = s
	}
}

// resumeConfig holds configuration for Resume/ResumeFrom.
type resumeConfig struct {
	resumeValue    any
	hasResumeValue bool
	replayNode     bool
	runOpts        []RunOption
}

// ResumeOption configures resume behavior.
type ResumeOption func(*resumeConfig)

// WithResumeValue supplies the answer to a prior Suspend call. The next
// Suspend executed during the resumed pass returns this value instead of
// suspending again.
func WithResumeValue(v any) ResumeOption {
	return func(c *resumeConfig) {
		c.resumeValue = v
		c.hasResumeValue = true
	}
}

// WithReplay re-executes the checkpointed node itself rather than
// continuing from its recorded successor.
func WithReplay() ResumeOption {
	return func(c *resumeConfig) {
		c.replayNode = true
	}
}

// WithRunOptions forwards run options (max iterations, metrics, tracing)
// to the resumed execution. Checkpointing is always re-enabled against
// the store and run ID passed to Resume.
func WithRunOptions(opts ...RunOption) ResumeOption {
	return func(c *resumeConfig) {
		c.runOpts = append(c.runOpts, opts...)
	}
}
