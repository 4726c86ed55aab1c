package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
)

// Agent runs a tool-using research loop: given a research brief it
// iterates model calls and tool invocations and returns the final
// reply text, which may be structured JSON or free prose.
type Agent interface {
	Research(ctx context.Context, brief string) (string, error)
}

// ToolAgent is the default Agent implementation: a langchaingo
// zero-shot agent executor over a fixed toolset.
type ToolAgent struct {
	executor *agents.Executor
	name     string
	metrics  *observability.Metrics
}

// AgentOption configures a ToolAgent.
type AgentOption func(*ToolAgent)

// WithAgentMetrics records research call metrics.
func WithAgentMetrics(m *observability.Metrics) AgentOption {
	return func(a *ToolAgent) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewToolAgent builds a research agent over the given model and tools.
// Name labels the agent in metrics. maxIterations bounds the agent's
// think/act loop.
func NewToolAgent(model llms.Model, name string, toolset []tools.Tool, maxIterations int, opts ...AgentOption) (*ToolAgent, error) {
	executor, err := agents.Initialize(
		model,
		toolset,
		agents.ZeroShotReactDescription,
		agents.WithMaxIterations(maxIterations),
	)
	if err != nil {
		return nil, fmt.Errorf("init %s agent: %w", name, err)
	}
	return newToolAgent(executor, name, opts...), nil
}

func newToolAgent(executor *agents.Executor, name string, opts ...AgentOption) *ToolAgent {
	a := &ToolAgent{
		executor: executor,
		name:     name,
		metrics:  observability.NoopMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Research implements Agent.
func (a *ToolAgent) Research(ctx context.Context, brief string) (string, error) {
	start := time.Now()
	reply, err := chains.Run(ctx, a.executor, brief)
	a.metrics.RecordLLMCall(ctx, a.name, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%s research: %w", a.name, err)
	}
	return reply, nil
}
