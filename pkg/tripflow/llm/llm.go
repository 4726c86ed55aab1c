// Package llm wraps the language-model layer: structured-output
// completion calls and tool-using research agents, both backed by
// langchaingo.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
)

// Generator asks the model for a value of a target schema. The prompt
// must describe the schema; the reply is parsed tolerantly (code
// fences and surrounding prose are stripped) and unmarshaled into out.
// An error means the call or the parse failed; there is no partial
// result.
type Generator interface {
	Generate(ctx context.Context, prompt string, out any) error
}

// ErrEmptyCompletion indicates the model returned no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// Client is the default Generator implementation over a langchaingo
// model.
type Client struct {
	model   llms.Model
	name    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records LLM call metrics.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient wraps a langchaingo model. Name labels the model in logs
// and metrics.
func NewClient(model llms.Model, name string, opts ...ClientOption) *Client {
	c := &Client{
		model:   model,
		name:    name,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOpenAIClient builds a Client over the OpenAI chat API.
func NewOpenAIClient(token, model string, opts ...ClientOption) (*Client, error) {
	m, err := openai.New(openai.WithToken(token), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("init openai model: %w", err)
	}
	return NewClient(m, model, opts...), nil
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, prompt string, out any) error {
	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithJSONMode())
	c.metrics.RecordLLMCall(ctx, c.name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if text == "" {
		return ErrEmptyCompletion
	}

	payload, err := ExtractJSON(text)
	if err != nil {
		c.logger.Warn("completion carried no JSON payload",
			slog.String("model", c.name),
			slog.String("error", err.Error()))
		return fmt.Errorf("extract payload: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
