package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tasks(ids ...string) []*Task {
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, &Task{ID: id})
	}
	return out
}

func edge(dependent, dependency string) InferredDependency {
	return InferredDependency{DependentTaskID: dependent, DependencyTaskID: dependency}
}

func TestDependencyGraph_DropsEdgesWithMissingEndpoints(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b"))
	g.SetEdges([]InferredDependency{edge("a", "b"), edge("a", "ghost")})

	require.Len(t, g.Edges, 1)
	require.Equal(t, []string{"b"}, g.DependenciesOf("a"))
	require.Equal(t, []string{"a"}, g.DependentsOf("b"))
}

func TestDependencyGraph_HasCycle(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b", "c"))
	g.SetEdges([]InferredDependency{edge("a", "b"), edge("b", "c")})
	require.False(t, g.HasCycle())

	g.SetEdges([]InferredDependency{edge("a", "b"), edge("b", "c"), edge("c", "a")})
	require.True(t, g.HasCycle())
}

func TestDependencyGraph_FindCycles(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b", "c", "d"))
	g.SetEdges([]InferredDependency{edge("a", "b"), edge("b", "c"), edge("c", "a"), edge("d", "a")})

	cycles := g.FindCycles()
	require.Len(t, cycles, 1)
	require.ElementsMatch(t, []string{"a", "b", "c", "a"}, cycles[0])
}

func TestDependencyGraph_TopologicalOrder(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b", "c", "d"))
	// d depends on b and c; b and c both depend on a.
	g.SetEdges([]InferredDependency{edge("b", "a"), edge("c", "a"), edge("d", "b"), edge("d", "c")})

	order := g.TopologicalOrder(func(a, b string) bool { return a < b })
	require.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestDependencyGraph_TopologicalOrderNilOnCycle(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b"))
	g.SetEdges([]InferredDependency{edge("a", "b"), edge("b", "a")})
	require.Nil(t, g.TopologicalOrder(func(a, b string) bool { return a < b }))
}

func TestDependencyGraph_CriticalPath(t *testing.T) {
	g := NewDependencyGraph(tasks("a", "b", "c", "d"))
	// a -> b -> d (long chain) and a -> c -> d (short chain, skipped by weight)
	g.SetEdges([]InferredDependency{edge("b", "a"), edge("c", "a"), edge("d", "b"), edge("d", "c")})

	weights := map[string]float64{"a": 1, "b": 5, "c": 1, "d": 1}
	path, total := g.CriticalPath(func(id string) float64 { return weights[id] })

	require.Equal(t, []string{"a", "b", "d"}, path)
	require.Equal(t, 7.0, total)
}
