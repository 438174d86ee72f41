package contextstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coordinator/internal/domain"
	"coordinator/internal/eventbus"
	"coordinator/internal/persistence"
)

func newTestStore(t *testing.T) (*Store, *eventbus.Bus) {
	backing, err := persistence.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })
	bus := eventbus.New(eventbus.Config{HistorySize: 50, EnableHistory: true}, backing)
	return New(bus, backing), bus
}

func TestStore_AddImplementationIndexesPatterns(t *testing.T) {
	s, bus := newTestStore(t)
	s.AddImplementation("task-1", map[string]interface{}{
		"summary": "added REST handler",
		"patterns": []interface{}{
			map[string]interface{}{"type": "rest_handler", "name": "createUser"},
		},
	})

	ctx := s.GetContext("task-2", []string{"task-1"})
	require.Equal(t, "added REST handler", ctx.PreviousImplementations["task-1"]["summary"])
	require.Len(t, ctx.RelatedPatterns["rest_handler"], 1)

	events := bus.GetHistory(nil, nil, 0)
	require.NotEmpty(t, events)
}

func TestStore_LogDecisionMonotonicIDs(t *testing.T) {
	s, _ := newTestStore(t)
	d1 := s.LogDecision("agent-1", "task-1", "chose postgres", "durability", "affects task-2 storage layer")
	d2 := s.LogDecision("agent-1", "task-1", "added index", "perf", "n/a")
	require.NotEqual(t, d1.DecisionID, d2.DecisionID)
	require.Len(t, s.GetDecisionsForTask("task-1"), 2)
}

func TestStore_GetContextIncludesImpactMentionAndCapsFive(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 7; i++ {
		s.LogDecision("agent-1", "other-task", "x", "y", "this affects task-9 eventually")
	}
	ctx := s.GetContext("task-9", nil)
	require.Len(t, ctx.ArchitecturalDecisions, 5)
}

func TestStore_AddDependencyAppearsInContext(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddDependency("task-1", domain.DependentTask{TaskID: "task-2", TaskName: "consumer", ExpectedInterface: "CreateUser(req) Resp"})
	ctx := s.GetContext("task-1", nil)
	require.Len(t, ctx.DependentTasks, 1)
	require.Equal(t, "task-2", ctx.DependentTasks[0].TaskID)
}

func TestStore_ClearOldDataPrunesByAge(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddImplementation("old-task", map[string]interface{}{"x": 1})
	s.mu.Lock()
	rec := s.implementations["old-task"]
	rec.storedAt = time.Now().Add(-100 * 24 * time.Hour)
	s.implementations["old-task"] = rec
	s.mu.Unlock()
	s.AddImplementation("new-task", map[string]interface{}{"x": 2})

	removed, _ := s.ClearOldData(30)
	require.Equal(t, 1, removed)
	require.NotContains(t, s.implementations, "old-task")
	require.Contains(t, s.implementations, "new-task")
}

func TestAnalyzeDependencies_ExplicitAndInferred(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "t1", Name: "Implement backend API", Labels: []string{"backend", "api"}},
		{ID: "t2", Name: "Build frontend UI", Labels: []string{"frontend"}},
		{ID: "t3", Name: "Explicit child", Dependencies: []string{"t1"}},
	}
	rev := AnalyzeDependencies(tasks, true)
	require.Contains(t, rev["t1"], "t3") // explicit: t3 depends on t1
	require.Contains(t, rev["t1"], "t2") // inferred: t2 (frontend) depends on t1 (backend/api)
}

func TestSuggestTaskOrder_PatternScenario(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "t1", Name: "Design DB schema", Labels: []string{"design"}, Priority: domain.PriorityMedium},
		{ID: "t2", Name: "Implement User API", Labels: []string{"api", "backend"}, Priority: domain.PriorityMedium},
		{ID: "t3", Name: "Test User API", Labels: []string{"test"}, Priority: domain.PriorityMedium},
		{ID: "t4", Name: "Deploy to Production", Labels: []string{"deploy"}, Priority: domain.PriorityMedium},
	}
	order := SuggestTaskOrder(tasks)
	ids := make([]string, len(order))
	for i, t := range order {
		ids[i] = t.ID
	}
	require.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids)
}

func TestSuggestTaskOrder_BreaksTiesByPriority(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "low", Name: "Misc chore", Priority: domain.PriorityLow},
		{ID: "urgent", Name: "Hotfix", Priority: domain.PriorityUrgent},
		{ID: "high", Name: "Important chore", Priority: domain.PriorityHigh},
	}
	order := SuggestTaskOrder(tasks)
	require.Equal(t, "urgent", order[0].ID)
	require.Equal(t, "high", order[1].ID)
	require.Equal(t, "low", order[2].ID)
}
