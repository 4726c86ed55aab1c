package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheckpoint_RoundTrip tests the wire format survives marshaling.
func TestCheckpoint_RoundTrip(t *testing.T) {
	cp := New("run-1", "estimate", 3, []byte(`{"budget":1200}`), "plan").
		WithPrevNode("start")

	data, err := cp.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, Version, decoded.Version)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "estimate", decoded.NodeID)
	assert.Equal(t, 3, decoded.Sequence)
	assert.Equal(t, "plan", decoded.NextNode)
	assert.Equal(t, "start", decoded.PrevNodeID)
	assert.JSONEq(t, `{"budget":1200}`, string(decoded.State))
	assert.False(t, decoded.Timestamp.IsZero())
}

// TestCheckpoint_UnmarshalGarbage tests the error path.
func TestCheckpoint_UnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
