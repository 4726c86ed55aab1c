package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records planning run metrics via OpenTelemetry. A zero-value
// Metrics (as returned by NoopMetrics) records nothing; all methods
// nil-check their instruments.
type Metrics struct {
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	interrupts     metric.Int64Counter
	checkpointSize metric.Int64Histogram
	candidates     metric.Int64Counter
	llmCalls       metric.Int64Counter
	llmLatency     metric.Float64Histogram
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// NewMetrics returns a Metrics instance bound to the global OTel meter
// provider. If instrument creation fails, returns a no-op instance and
// logs a warning. Configure the provider before calling:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	if defaultMetricsErr != nil {
		slog.Warn("metrics initialization failed, using no-op instruments",
			slog.String("error", defaultMetricsErr.Error()))
		return NoopMetrics()
	}
	return defaultMetrics
}

// NoopMetrics returns a Metrics instance that records nothing.
func NoopMetrics() *Metrics {
	return &Metrics{}
}

func newOtelMetrics() (*Metrics, error) {
	meter := otel.Meter("tripflow")

	runs, err := meter.Int64Counter("tripflow.run.count",
		metric.WithDescription("Number of planning runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("tripflow.run.latency_ms",
		metric.WithDescription("Planning run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeExecutions, err := meter.Int64Counter("tripflow.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("tripflow.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("tripflow.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	interrupts, err := meter.Int64Counter("tripflow.run.interrupts",
		metric.WithDescription("Number of runs suspended for human review"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("tripflow.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Counter("tripflow.research.candidates",
		metric.WithDescription("Number of research candidates produced per category"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter("tripflow.llm.calls",
		metric.WithDescription("Number of LLM completion calls"),
	)
	if err != nil {
		return nil, err
	}

	llmLatency, err := meter.Float64Histogram("tripflow.llm.latency_ms",
		metric.WithDescription("LLM completion latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:           runs,
		runLatency:     runLatency,
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		interrupts:     interrupts,
		checkpointSize: checkpointSize,
		candidates:     candidates,
		llmCalls:       llmCalls,
		llmLatency:     llmLatency,
	}, nil
}

// RecordRun records a run completion. A suspended run counts as
// success.
func (m *Metrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	if m.runs == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordNode records a node execution with duration and error status.
func (m *Metrics) RecordNode(ctx context.Context, nodeID string, duration time.Duration, err error) {
	if m.nodeExecutions == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

// RecordInterrupt records a run suspending at a node.
func (m *Metrics) RecordInterrupt(ctx context.Context, nodeID string) {
	if m.interrupts == nil {
		return
	}
	m.interrupts.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

// RecordCheckpoint records a checkpoint save.
func (m *Metrics) RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64) {
	if m.checkpointSize == nil {
		return
	}
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

// RecordCandidates records how many candidates a research category
// produced.
func (m *Metrics) RecordCandidates(ctx context.Context, category string, count int) {
	if m.candidates == nil {
		return
	}
	m.candidates.Add(ctx, int64(count), metric.WithAttributes(attribute.String("category", category)))
}

// RecordLLMCall records an LLM completion call.
func (m *Metrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, err error) {
	if m.llmCalls == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("error", err != nil),
	)
	m.llmCalls.Add(ctx, 1, attrs)
	m.llmLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}
