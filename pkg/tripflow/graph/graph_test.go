package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddNode_Panics tests builder validation.
func TestAddNode_Panics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"empty id", func() { New[Counter]().AddNode("", increment) }},
		{"reserved END", func() { New[Counter]().AddNode("END", increment) }},
		{"reserved __end__", func() { New[Counter]().AddNode("__end__", increment) }},
		{"whitespace", func() { New[Counter]().AddNode("bad id", increment) }},
		{"nil func", func() { New[Counter]().AddNode("ok", nil) }},
		{"duplicate", func() {
			New[Counter]().AddNode("a", increment).AddNode("a", increment)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.fn)
		})
	}
}

// TestCompile_NoEntryPoint tests that Compile requires SetEntry.
func TestCompile_NoEntryPoint(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", End)

	_, err := g.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

// TestCompile_EntryNotFound tests unknown entry node detection.
func TestCompile_EntryNotFound(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", End).
		SetEntry("missing")

	_, err := g.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

// TestCompile_EdgeToUnknownNode tests edge target validation.
func TestCompile_EdgeToUnknownNode(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", "ghost").
		SetEntry("a")

	_, err := g.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// TestCompile_NoPathToEnd tests dead-end detection.
func TestCompile_NoPathToEnd(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a")

	_, err := g.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPathToEnd)
}

// TestCompile_RouterAssumedToReachEnd tests that a router-only node
// does not trip path validation.
func TestCompile_RouterAssumedToReachEnd(t *testing.T) {
	router := func(ctx Context, s Counter) []string { return []string{End} }

	g := New[Counter]().
		AddNode("a", increment).
		AddRouter("a", router).
		SetEntry("a")

	_, err := g.Compile()

	require.NoError(t, err)
}

// TestCompiledGraph_Introspection tests the read-only accessors.
func TestCompiledGraph_Introspection(t *testing.T) {
	router := func(ctx Context, s Counter) []string { return []string{End} }

	g := New[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge("a", "b").
		AddEdge("a", "c").
		AddEdge("b", "c").
		AddRouter("c", router).
		SetEntry("a")

	compiled, err := g.Compile()
	require.NoError(t, err)

	assert.Equal(t, "a", compiled.EntryPoint())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, compiled.NodeIDs())
	assert.True(t, compiled.HasNode("b"))
	assert.False(t, compiled.HasNode("ghost"))
	assert.ElementsMatch(t, []string{"b", "c"}, compiled.Successors("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, compiled.Predecessors("c"))
	assert.True(t, compiled.IsConditional("c"))
	assert.False(t, compiled.IsConditional("a"))
	assert.True(t, compiled.IsFork("a"))
	assert.False(t, compiled.IsFork("b"))
}

// TestCompile_BuilderMutationAfterCompile tests that a compiled graph
// is isolated from later builder changes.
func TestCompile_BuilderMutationAfterCompile(t *testing.T) {
	g := New[Counter]().
		AddNode("a", increment).
		AddEdge("a", End).
		SetEntry("a")

	compiled, err := g.Compile()
	require.NoError(t, err)

	g.AddNode("late", increment)

	assert.False(t, compiled.HasNode("late"))
}
