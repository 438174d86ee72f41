// Package coordinator implements the façade: the thin orchestration
// surface that glues persistence, resilience, the event bus, the
// context store, memory, and the hybrid dependency inferer into the
// single request_next_task/report_progress/report_blocker/complete_task
// contract agents consume. One top-level struct owns the subsystem
// instances, constructed once, with every public method a short
// sequence of calls into those subsystems plus event emission.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"coordinator/internal/config"
	"coordinator/internal/contextstore"
	"coordinator/internal/depinfer"
	"coordinator/internal/domain"
	"coordinator/internal/eventbus"
	"coordinator/internal/kanban"
	"coordinator/internal/logging"
	"coordinator/internal/memory"
	"coordinator/internal/resilience"
)

// Agent is the roster entry register_agent appends.
type Agent struct {
	ID     string
	Name   string
	Skills []string
}

// Bundle is request_next_task's return value: everything an agent needs
// to start work.
type Bundle struct {
	Task           *domain.Task
	Context        domain.TaskContext
	Predictions    memory.EnhancedPrediction
	SuggestedOrder []string
}

// Coordinator is the façade. It owns the event bus, context store, and
// memory; the dependency inferer and Kanban
// provider are held by reference since they are swappable collaborators.
type Coordinator struct {
	cfg     config.Config
	bus     *eventbus.Bus
	ctx     *contextstore.Store
	mem     *memory.Memory
	inferer *depinfer.Inferer
	kanban  kanban.Provider
	breaker *resilience.Registry

	mu     sync.Mutex
	roster map[string]Agent
}

// New wires the façade's owned subsystems around the supplied
// collaborators. kanbanProvider and inferer come from the caller so both
// remain swappable.
func New(cfg config.Config, bus *eventbus.Bus, ctxStore *contextstore.Store, mem *memory.Memory, inferer *depinfer.Inferer, kanbanProvider kanban.Provider) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		bus:     bus,
		ctx:     ctxStore,
		mem:     mem,
		inferer: inferer,
		kanban:  kanbanProvider,
		breaker: resilience.NewRegistry(resilience.BreakerConfig{
			FailureThreshold: cfg.Resilience.FailureThreshold,
			RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
		}),
		roster: make(map[string]Agent),
	}
}

// RegisterAgent appends to the roster and emits agent_registered.
func (c *Coordinator) RegisterAgent(agent Agent) {
	c.mu.Lock()
	c.roster[agent.ID] = agent
	c.mu.Unlock()

	c.bus.Publish(eventbus.AgentRegistered, "coordinator", map[string]interface{}{
		"agent_id": agent.ID, "name": agent.Name,
	}, nil, false)
}

// RequestNextTask implements request_next_task. It returns
// (nil, nil) when no ready task exists, and (nil, err) when the Kanban
// integration's breaker is open or the refresh otherwise fails — the
// this module's Open Question on this path is resolved as "surface the breaker
// error to the caller rather than silently retrying" (see DESIGN.md).
func (c *Coordinator) RequestNextTask(ctx context.Context, agentID string) (*Bundle, error) {
	tasks, err := c.refreshTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.mem.UpdateProjectTasks(tasks)

	graph := c.inferer.Infer(ctx, tasks)

	ready := readyTasks(tasks, graph)
	if len(ready) == 0 {
		return nil, nil
	}

	order := graph.TopologicalOrder(func(a, b string) bool { return a < b })
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if position[a.ID] != position[b.ID] {
			return position[a.ID] < position[b.ID]
		}
		return a.EstimatedHours < b.EstimatedHours
	})

	candidate := ready[0]

	taskContext := c.ctx.GetContext(candidate.ID, candidate.Dependencies)
	predictions := c.mem.PredictTaskOutcomeV2(agentID, candidate)

	// Persist first, emit second: record_task_start must complete before
	// task_assigned is published, so a cancelled caller never sees an
	// assignment event with no matching memory record.
	c.mem.RecordTaskStart(agentID, candidate)
	c.bus.Publish(eventbus.TaskAssigned, "coordinator", map[string]interface{}{
		"agent_id": agentID, "task_id": candidate.ID,
	}, nil, true)

	suggestedOrder := make([]string, 0, len(ready))
	for _, t := range ready {
		suggestedOrder = append(suggestedOrder, t.ID)
	}

	return &Bundle{
		Task:           candidate,
		Context:        taskContext,
		Predictions:    predictions,
		SuggestedOrder: suggestedOrder,
	}, nil
}

// refreshTasks pulls the latest snapshot through the Kanban provider's
// circuit breaker, retrying transient failures before surfacing
// RemoteUnavailable.
func (c *Coordinator) refreshTasks(ctx context.Context) ([]*domain.Task, error) {
	breaker := c.breaker.Get("kanban")
	var tasks []*domain.Task
	err := breaker.Call(ctx, func(ctx context.Context) error {
		err := resilience.Retry(ctx, resilience.RetryConfig{
			MaxAttempts:     c.cfg.Resilience.MaxAttempts,
			BaseDelay:       c.cfg.Resilience.BaseDelay,
			MaxDelay:        c.cfg.Resilience.MaxDelay,
			ExponentialBase: c.cfg.Resilience.ExponentialBase,
			Jitter:          c.cfg.Resilience.Jitter,
		}, func(ctx context.Context) error {
			all, err := c.kanban.GetAllTasks(ctx)
			if err != nil {
				return err
			}
			tasks = resolveOriginalIDs(all)
			return nil
		})
		if err != nil {
			return &resilience.ErrRemoteUnavailable{Target: "kanban", Err: err}
		}
		return nil
	})
	if err != nil {
		c.bus.PublishNoWait(eventbus.KanbanError, "coordinator", map[string]interface{}{"error": err.Error()}, nil)
		return nil, err
	}
	return tasks, nil
}

// resolveOriginalIDs rewrites each task's Dependencies through the
// original-id index built from every task's decoded description.
func resolveOriginalIDs(tasks []*domain.Task) []*domain.Task {
	idx := kanban.BuildOriginalIDIndex(tasks)
	for _, t := range tasks {
		t.Dependencies = kanban.ResolveDependencies(t.Dependencies, idx)
	}
	return tasks
}

// readyTasks is step 3: todo, unassigned, all dependencies done.
func readyTasks(tasks []*domain.Task, graph *domain.DependencyGraph) []*domain.Task {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var ready []*domain.Task
	for _, t := range tasks {
		if t.Status != domain.StatusTodo || t.AssignedTo != "" {
			continue
		}
		allDepsDone := true
		for _, depID := range graph.DependenciesOf(t.ID) {
			dep, ok := byID[depID]
			if !ok || dep.Status != domain.StatusDone {
				allDepsDone = false
				break
			}
		}
		if allDepsDone {
			ready = append(ready, t)
		}
	}
	return ready
}

// ReportProgress emits task_progress.
func (c *Coordinator) ReportProgress(agentID, taskID string, status domain.Status, progress float64, message string) {
	c.bus.Publish(eventbus.TaskProgress, "coordinator", map[string]interface{}{
		"agent_id": agentID, "task_id": taskID, "status": string(status),
		"progress": progress, "message": message,
	}, nil, false)
}

// BlockerSeverity classifies a reported blocker.
type BlockerSeverity string

const (
	SeverityLow      BlockerSeverity = "low"
	SeverityMedium   BlockerSeverity = "medium"
	SeverityHigh     BlockerSeverity = "high"
	SeverityCritical BlockerSeverity = "critical"
)

// ReportBlocker emits task_blocked. Memory only records the blocker text
// at completion time — this call is a progress signal, not a learning
// input by itself.
func (c *Coordinator) ReportBlocker(agentID, taskID, description string, severity BlockerSeverity) {
	c.bus.Publish(eventbus.TaskBlocked, "coordinator", map[string]interface{}{
		"agent_id": agentID, "task_id": taskID, "description": description, "severity": string(severity),
	}, nil, false)
}

// Implementation is the optional artifact bundle CompleteTask forwards to
// the context store.
type Implementation map[string]interface{}

// CompleteTask implements complete_task: records the outcome
// in memory, optionally records implementation artifacts, and emits
// task_completed or task_blocked depending on success.
func (c *Coordinator) CompleteTask(agentID, taskID string, success bool, actualHours float64, blockers []string, impl Implementation) *domain.TaskOutcome {
	outcome := c.mem.RecordTaskCompletion(agentID, taskID, success, actualHours, blockers)
	if outcome == nil {
		return nil
	}

	if len(impl) > 0 {
		c.ctx.AddImplementation(taskID, impl)
	}

	eventType := eventbus.TaskCompleted
	if !success {
		eventType = eventbus.TaskBlocked
	}
	c.bus.Publish(eventType, "coordinator", map[string]interface{}{
		"agent_id": agentID, "task_id": taskID, "success": success,
	}, nil, true)

	return outcome
}

// LogDecision forwards to the context store's log_decision,
// exposed on the façade since agents report decisions through the same
// surface they request and complete tasks on.
func (c *Coordinator) LogDecision(agentID, taskID, what, why, impact string) domain.Decision {
	return c.ctx.LogDecision(agentID, taskID, what, why, impact)
}

// ValidateDependencyGraph runs validate_dependencies against
// the graph the inferer would currently produce for tasks.
func (c *Coordinator) ValidateDependencyGraph(ctx context.Context, tasks []*domain.Task) depinfer.ValidationSummary {
	graph := c.inferer.Infer(ctx, tasks)
	return depinfer.ValidateDependencies(graph)
}

// ClearOldData prunes context-store data older than the configured
// retention window (90 days when unset) each time it is called; the
// façade does not schedule it itself.
func (c *Coordinator) ClearOldData() {
	days := c.cfg.Persistence.RetentionDays
	if days <= 0 {
		days = 90
	}
	implRemoved, decisionsRemoved := c.ctx.ClearOldData(days)
	logging.Get(logging.CategoryCoordinator).Info("clear_old_data: removed %d implementations, %d decisions older than %d days", implRemoved, decisionsRemoved, days)
}

// Startup emits system_startup; Shutdown emits system_shutdown. Both are
// thin wiring hooks for cmd/coordinator.
func (c *Coordinator) Startup() {
	c.bus.Publish(eventbus.SystemStartup, "coordinator", map[string]interface{}{"at": time.Now().UTC().Format(time.RFC3339)}, nil, false)
}

func (c *Coordinator) Shutdown() {
	c.bus.Publish(eventbus.SystemShutdown, "coordinator", map[string]interface{}{"at": time.Now().UTC().Format(time.RFC3339)}, nil, true)
}

// AgentProfileSummary is a read-only view for CLI/demo surfaces.
func (c *Coordinator) AgentProfileSummary(agentID string) string {
	c.mu.Lock()
	agent, ok := c.roster[agentID]
	c.mu.Unlock()
	if !ok {
		return fmt.Sprintf("agent %s not registered", agentID)
	}
	return fmt.Sprintf("agent %s (%s)", agent.ID, agent.Name)
}
