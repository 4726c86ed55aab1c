package graph

import (
	"context"
	"sort"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// TrackState records execution order and routing inputs.
type TrackState struct {
	Progress []string
	GoLeft   bool
	Done     bool
}

// FanState exercises parallel fan-out. Each branch appends to Items;
// Merge concatenates the per-branch suffixes in sorted branch order.
type FanState struct {
	Items []string
}

func (s FanState) Clone(branchID string) FanState {
	c := s
	c.Items = s.Items[:len(s.Items):len(s.Items)]
	return c
}

func (s FanState) Merge(branches map[string]FanState) FanState {
	forkLen := len(s.Items)
	ids := make([]string, 0, len(branches))
	for id := range branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := branches[id]
		if len(b.Items) > forkLen {
			s.Items = append(s.Items, b.Items[forkLen:]...)
		}
	}
	return s
}

// Helper node functions

func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

func makeTrackingNode(name string) NodeFunc[TrackState] {
	return func(ctx Context, s TrackState) (TrackState, error) {
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

func makeAppendNode(name string) NodeFunc[FanState] {
	return func(ctx Context, s FanState) (FanState, error) {
		s.Items = append(s.Items, name)
		return s, nil
	}
}

func makeFailingNode[S any](err error) NodeFunc[S] {
	return func(ctx Context, s S) (S, error) {
		return s, err
	}
}

func testCtx() Context {
	return NewContext(context.Background())
}
