package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToolAgentResearch runs the executor loop end to end with a model
// that produces a final answer on the first turn.
func TestToolAgentResearch(t *testing.T) {
	model := &stubModel{reply: "Final Answer: Lisbon is calm in September."}
	agent, err := NewToolAgent(model, "recommendations", nil, 3)
	require.NoError(t, err)

	reply, err := agent.Research(context.Background(), "how safe is Lisbon for a couple?")

	require.NoError(t, err)
	assert.Contains(t, reply, "Lisbon is calm in September.")
}

// TestToolAgentResearch_ModelError tests that executor failures carry
// the agent name.
func TestToolAgentResearch_ModelError(t *testing.T) {
	model := &stubModel{err: errors.New("rate limited")}
	agent, err := NewToolAgent(model, "food", nil, 3)
	require.NoError(t, err)

	_, err = agent.Research(context.Background(), "find restaurants")

	require.Error(t, err)
	assert.ErrorContains(t, err, "food research")
}
