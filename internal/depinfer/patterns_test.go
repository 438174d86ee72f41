package depinfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coordinator/internal/config"
	"coordinator/internal/domain"
)

func task(id, name string, labels ...string) *domain.Task {
	return &domain.Task{
		ID:        id,
		Name:      name,
		Status:    domain.StatusTodo,
		Labels:    labels,
		CreatedAt: time.Now().UTC(),
	}
}

// TestScenarioS1_PatternOrdering implements scenario S1.
func TestScenarioS1_PatternOrdering(t *testing.T) {
	tasks := []*domain.Task{
		task("T1", "Design DB schema", "design"),
		task("T2", "Implement User API", "api", "backend"),
		task("T3", "Test User API", "test"),
		task("T4", "Deploy to Production", "deploy"),
	}

	inf := New(config.DepInferConfig{PatternConfidenceThreshold: 0.8, EnableAIInference: false}, nil)
	g := inf.Infer(context.Background(), tasks)

	require.False(t, g.HasCycle())
	require.Contains(t, g.DependenciesOf("T2"), "T1")
	require.Contains(t, g.DependenciesOf("T3"), "T2")
	require.Contains(t, g.DependenciesOf("T4"), "T3")

	summary := ValidateDependencies(g)
	require.Empty(t, summary.Issues)
}

// TestScenarioS2_CycleBreak implements scenario S2: given
// A->B (0.9), B->C (0.85), C->A (0.7), the lowest-confidence edge (C->A)
// is removed.
func TestScenarioS2_CycleBreak(t *testing.T) {
	tasks := []*domain.Task{task("A", "A"), task("B", "B"), task("C", "C")}
	edges := []domain.InferredDependency{
		{DependentTaskID: "A", DependencyTaskID: "B", Confidence: 0.9},
		{DependentTaskID: "B", DependencyTaskID: "C", Confidence: 0.85},
		{DependentTaskID: "C", DependencyTaskID: "A", Confidence: 0.7},
	}

	result := breakCycles(tasks, edges)

	g := domain.NewDependencyGraph(tasks)
	g.SetEdges(result)
	require.False(t, g.HasCycle())
	require.Contains(t, g.DependenciesOf("A"), "B")
	require.Contains(t, g.DependenciesOf("B"), "C")
	require.NotContains(t, g.DependenciesOf("C"), "A")
}

func TestRemoveTransitiveEdges_DropsRedundantDirectEdge(t *testing.T) {
	tasks := []*domain.Task{task("A", "A"), task("B", "B"), task("C", "C")}
	edges := []domain.InferredDependency{
		{DependentTaskID: "A", DependencyTaskID: "B", Confidence: 0.8},
		{DependentTaskID: "B", DependencyTaskID: "C", Confidence: 0.8},
		{DependentTaskID: "A", DependencyTaskID: "C", Confidence: 0.6},
	}

	result := removeTransitiveEdges(tasks, edges)
	require.Len(t, result, 2)
	for _, e := range result {
		require.NotEqual(t, [2]string{"A", "C"}, [2]string{e.DependentTaskID, e.DependencyTaskID})
	}
}

func TestRemoveTransitiveEdges_KeepsMandatoryDirectEdge(t *testing.T) {
	tasks := []*domain.Task{task("A", "A"), task("B", "B"), task("C", "C")}
	edges := []domain.InferredDependency{
		{DependentTaskID: "A", DependencyTaskID: "B", Confidence: 0.8},
		{DependentTaskID: "B", DependencyTaskID: "C", Confidence: 0.8},
		{DependentTaskID: "A", DependencyTaskID: "C", Confidence: 0.95, Mandatory: true},
	}

	result := removeTransitiveEdges(tasks, edges)
	require.Len(t, result, 3)
}

func TestFindAmbiguousPairs_FlagsLowConfidenceAndConflicts(t *testing.T) {
	tasks := []*domain.Task{task("A", "Frontend widget", "ui"), task("B", "Backend service", "api")}
	edges := []domain.InferredDependency{
		{DependentTaskID: "A", DependencyTaskID: "B", Confidence: 0.5},
	}
	cfg := config.DepInferConfig{PatternConfidenceThreshold: 0.8, MinSharedKeywords: 2, WorkflowGroupMinSize: 4}

	pairs := findAmbiguousPairs(tasks, edges, cfg)
	require.Len(t, pairs, 1)
}
