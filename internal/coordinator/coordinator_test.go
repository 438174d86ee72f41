package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"coordinator/internal/config"
	"coordinator/internal/contextstore"
	"coordinator/internal/depinfer"
	"coordinator/internal/domain"
	"coordinator/internal/eventbus"
	"coordinator/internal/kanban"
	"coordinator/internal/memory"
	"coordinator/internal/persistence"
)

// fakeKanban is an in-memory kanban.Provider for façade tests; it never
// talks to a real board.
type fakeKanban struct {
	tasks []*domain.Task
}

func (f *fakeKanban) GetAllTasks(ctx context.Context) ([]*domain.Task, error) { return f.tasks, nil }
func (f *fakeKanban) GetAvailableTasks(ctx context.Context) ([]*domain.Task, error) {
	return f.tasks, nil
}
func (f *fakeKanban) AssignTask(ctx context.Context, taskID, agentID string) error { return nil }
func (f *fakeKanban) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	return nil
}
func (f *fakeKanban) AddComment(ctx context.Context, taskID, text string) error { return nil }
func (f *fakeKanban) CompleteTask(ctx context.Context, taskID string) error     { return nil }
func (f *fakeKanban) CreateTask(ctx context.Context, data kanban.TaskData) (*domain.Task, error) {
	return &domain.Task{ID: "new"}, nil
}

func newTestCoordinator(t *testing.T, tasks []*domain.Task) (*Coordinator, *eventbus.Bus) {
	backing, err := persistence.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	bus := eventbus.New(eventbus.Config{HistorySize: 100, EnableHistory: true}, backing)
	ctxStore := contextstore.New(bus, backing)
	mem := memory.New(memory.Config{}, bus, backing, nil)
	inferer := depinfer.New(config.DepInferConfig{PatternConfidenceThreshold: 0.8}, nil)

	cfg := *config.DefaultConfig()
	coord := New(cfg, bus, ctxStore, mem, inferer, &fakeKanban{tasks: tasks})
	return coord, bus
}

func TestRequestNextTask_NoReadyTasksReturnsNil(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "T1", Name: "Blocked task", Status: domain.StatusBlocked},
	}
	coord, _ := newTestCoordinator(t, tasks)

	bundle, err := coord.RequestNextTask(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Nil(t, bundle)
}

func TestRequestNextTask_PicksHighestPriorityReadyTask(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "T1", Name: "Design DB schema", Status: domain.StatusTodo, Priority: domain.PriorityLow, Labels: []string{"design"}},
		{ID: "T2", Name: "Hotfix outage", Status: domain.StatusTodo, Priority: domain.PriorityUrgent},
	}
	coord, bus := newTestCoordinator(t, tasks)

	var gotAssigned bool
	bus.Subscribe(eventbus.TaskAssigned, func(e eventbus.Event) error {
		gotAssigned = true
		return nil
	})

	bundle, err := coord.RequestNextTask(context.Background(), "agent-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.Equal(t, "T2", bundle.Task.ID)
	require.True(t, gotAssigned)
}

func TestRequestNextTask_RespectsInferredDependencyOrdering(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "T1", Name: "Design DB schema", Status: domain.StatusTodo, Priority: domain.PriorityUrgent, Labels: []string{"design"}},
		{ID: "T2", Name: "Implement User API", Status: domain.StatusTodo, Priority: domain.PriorityUrgent, Labels: []string{"api"}},
	}
	coord, _ := newTestCoordinator(t, tasks)

	bundle, err := coord.RequestNextTask(context.Background(), "agent-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.Equal(t, "T1", bundle.Task.ID)
}

func TestCompleteTask_EmitsTaskCompleted(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "T1", Name: "Write docs", Status: domain.StatusTodo, Priority: domain.PriorityMedium},
	}
	coord, bus := newTestCoordinator(t, tasks)

	bundle, err := coord.RequestNextTask(context.Background(), "agent-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)

	var gotCompleted bool
	bus.Subscribe(eventbus.TaskCompleted, func(e eventbus.Event) error {
		gotCompleted = true
		return nil
	})

	outcome := coord.CompleteTask("agent-1", "T1", true, 2, nil, nil)
	require.NotNil(t, outcome)
	require.True(t, gotCompleted)
}

func TestCompleteTask_FailureEmitsTaskBlocked(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "T1", Name: "Write docs", Status: domain.StatusTodo, Priority: domain.PriorityMedium},
	}
	coord, bus := newTestCoordinator(t, tasks)

	_, err := coord.RequestNextTask(context.Background(), "agent-1")
	require.NoError(t, err)

	var gotBlocked bool
	bus.Subscribe(eventbus.TaskBlocked, func(e eventbus.Event) error {
		gotBlocked = true
		return nil
	})

	outcome := coord.CompleteTask("agent-1", "T1", false, 1, []string{"missing credentials"}, nil)
	require.NotNil(t, outcome)
	require.True(t, gotBlocked)
}

func TestRegisterAgent_AddsToRoster(t *testing.T) {
	coord, _ := newTestCoordinator(t, nil)
	coord.RegisterAgent(Agent{ID: "agent-1", Name: "Ada"})
	require.Contains(t, coord.AgentProfileSummary("agent-1"), "Ada")
}
