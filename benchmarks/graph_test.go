package benchmarks

import (
	"context"
	"testing"

	"github.com/voyagelabs/tripflow/pkg/tripflow/graph"
)

// State for engine benchmarks.
type State struct {
	Value int
}

// noopNode does minimal work to measure framework overhead.
func noopNode(ctx graph.Context, s State) (State, error) {
	return s, nil
}

// BenchmarkNewGraph measures graph creation overhead.
func BenchmarkNewGraph(b *testing.B) {
	for i := 0; i < b.N; i++ {
		graph.New[State]()
	}
}

// BenchmarkAddNode measures node addition overhead.
func BenchmarkAddNode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := graph.New[State]()
		g.AddNode("node", noopNode)
	}
}

// BenchmarkAddNode_100 measures adding 100 nodes.
func BenchmarkAddNode_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := graph.New[State]()
		for j := 0; j < 100; j++ {
			g.AddNode(nodeID(j), noopNode)
		}
	}
}

// BenchmarkCompile_Linear_10 compiles a 10-node linear graph.
func BenchmarkCompile_Linear_10(b *testing.B) {
	g := buildLinearGraph(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Compile()
	}
}

// BenchmarkCompile_Linear_100 compiles a 100-node linear graph.
func BenchmarkCompile_Linear_100(b *testing.B) {
	g := buildLinearGraph(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Compile()
	}
}

// BenchmarkCompile_FanOut compiles a fork/join graph shaped like the
// research fan-out.
func BenchmarkCompile_FanOut(b *testing.B) {
	g := buildFanOutGraph(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Compile()
	}
}

// BenchmarkRun_Linear_10 runs a 10-node linear graph.
func BenchmarkRun_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := graph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Linear_100 runs a 100-node linear graph.
func BenchmarkRun_Linear_100(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(100))
	ctx := graph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkRun_Routed runs a graph with a conditional router.
func BenchmarkRun_Routed(b *testing.B) {
	compiled := mustCompile(buildRoutedGraph())
	ctx := graph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{Value: i})
	}
}

// BenchmarkRun_FanOut_5 runs a 5-branch parallel fan-out per
// iteration, matching the research node count.
func BenchmarkRun_FanOut_5(b *testing.B) {
	compiled := mustCompile(buildFanOutGraph(5))
	ctx := graph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, State{})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		graph.NewContext(bg)
	}
}

// Helper functions

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func mustCompile(g *graph.Graph[State]) *graph.CompiledGraph[State] {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func buildLinearGraph(n int) *graph.Graph[State] {
	g := graph.New[State]()
	for i := 0; i < n; i++ {
		g.AddNode(nodeID(i), noopNode)
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(nodeID(i), nodeID(i+1))
	}
	g.AddEdge(nodeID(n-1), graph.End)
	g.SetEntry(nodeID(0))
	return g
}

func buildRoutedGraph() *graph.Graph[State] {
	router := func(ctx graph.Context, s State) []string {
		if s.Value%2 == 0 {
			return []string{"even"}
		}
		return []string{"odd"}
	}

	return graph.New[State]().
		AddNode("start", noopNode).
		AddNode("even", noopNode).
		AddNode("odd", noopNode).
		AddNode("merge", noopNode).
		AddRouter("start", router).
		AddEdge("even", "merge").
		AddEdge("odd", "merge").
		AddEdge("merge", graph.End).
		SetEntry("start")
}

func buildFanOutGraph(branches int) *graph.Graph[State] {
	g := graph.New[State]().
		AddNode("fork", noopNode).
		AddNode("join", noopNode)
	for i := 0; i < branches; i++ {
		id := "branch-" + nodeID(i)
		g.AddNode(id, noopNode)
		g.AddEdge("fork", id)
		g.AddEdge(id, "join")
	}
	g.AddEdge("join", graph.End)
	g.SetEntry("fork")
	return g
}
