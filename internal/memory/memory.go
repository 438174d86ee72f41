// Package memory implements the four-tier learning store (working,
// episodic, semantic, procedural) and the predictive operations built
// over it, with a tiered configuration of its own learning-rate and
// decay constants.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"coordinator/internal/domain"
	"coordinator/internal/eventbus"
	"coordinator/internal/logging"
	"coordinator/internal/persistence"
	"coordinator/internal/textutil"
)

// learningRate and memoryDecay are fixed constants. They are
// also exposed on Config so callers can override them (e.g. via
// config.MemoryConfig) without touching call sites.
const (
	defaultLearningRate = 0.1
	defaultMemoryDecay  = 0.95
)

type activeTask struct {
	task      *domain.Task
	startedAt time.Time
	events    []string
}

// Config tunes the learning-rate and decay constants fixes by
// default; present so config.MemoryConfig can override them.
type Config struct {
	LearningRate float64
	MemoryDecay  float64
}

// Memory is four-tier learning store.
type Memory struct {
	cfg     Config
	bus     *eventbus.Bus
	backing persistence.Store
	median  persistence.MedianProvider

	mu sync.RWMutex

	// Working tier.
	activeTasks map[string]activeTask // agent_id -> active task
	recentEvents []string
	allTasks    map[string]*domain.Task

	// Episodic tier.
	outcomes []domain.TaskOutcome
	timeline map[string][]domain.TaskOutcome // date (YYYY-MM-DD) -> outcomes

	// Semantic tier.
	agentProfiles map[string]*domain.AgentProfile
	taskPatterns  map[string]*domain.TaskPattern
	successFactors map[string]float64

	// Procedural tier — reserved, not written by the core.
	workflows    map[string]interface{}
	strategies   map[string]interface{}
	optimizations map[string]interface{}
}

// New builds an empty Memory. median may be nil (falls back to in-memory
// median for get_global_median_duration).
func New(cfg Config, bus *eventbus.Bus, backing persistence.Store, median persistence.MedianProvider) *Memory {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = defaultLearningRate
	}
	if cfg.MemoryDecay <= 0 {
		cfg.MemoryDecay = defaultMemoryDecay
	}
	return &Memory{
		cfg:            cfg,
		bus:            bus,
		backing:        backing,
		median:         median,
		activeTasks:    make(map[string]activeTask),
		allTasks:       make(map[string]*domain.Task),
		timeline:       make(map[string][]domain.TaskOutcome),
		agentProfiles:  make(map[string]*domain.AgentProfile),
		taskPatterns:   make(map[string]*domain.TaskPattern),
		successFactors: make(map[string]float64),
		workflows:      make(map[string]interface{}),
		strategies:     make(map[string]interface{}),
		optimizations:  make(map[string]interface{}),
	}
}

// RecordTaskStart sets the working-tier active entry for agentID and
// emits task_started.
func (m *Memory) RecordTaskStart(agentID string, task *domain.Task) {
	m.mu.Lock()
	m.activeTasks[agentID] = activeTask{task: task, startedAt: time.Now().UTC()}
	m.recordRecentEventLocked("task_started:" + agentID + ":" + task.ID)
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.TaskStarted, "memory", map[string]interface{}{
			"agent_id": agentID, "task_id": task.ID,
		}, nil, false)
	}
}

// RecordTaskCompletion validates the working entry matches task_id,
// constructs a TaskOutcome, appends it to the episodic tier, updates the
// semantic tier, persists the outcome, clears the working entry, and
// emits task_completed. Returns nil if no matching active task exists.
func (m *Memory) RecordTaskCompletion(agentID, taskID string, success bool, actualHours float64, blockers []string) *domain.TaskOutcome {
	m.mu.Lock()
	active, ok := m.activeTasks[agentID]
	if !ok || active.task.ID != taskID {
		m.mu.Unlock()
		return nil
	}
	delete(m.activeTasks, agentID)

	now := time.Now().UTC()
	outcome := domain.TaskOutcome{
		TaskID:         taskID,
		AgentID:        agentID,
		TaskName:       active.task.Name,
		EstimatedHours: active.task.EstimatedHours,
		ActualHours:    actualHours,
		Success:        success,
		Blockers:       blockers,
		StartedAt:      timePtr(active.startedAt),
		CompletedAt:    timePtr(now),
	}
	m.outcomes = append(m.outcomes, outcome)
	dateKey := now.Format("2006-01-02")
	m.timeline[dateKey] = append(m.timeline[dateKey], outcome)
	m.recordRecentEventLocked("task_completed:" + agentID + ":" + taskID)
	m.mu.Unlock()

	m.updateAgentProfile(agentID, outcome, active.task)
	m.learnTaskPatterns(outcome, active.task)

	if m.backing != nil {
		payload := map[string]interface{}{
			"task_id": outcome.TaskID, "agent_id": outcome.AgentID, "task_name": outcome.TaskName,
			"estimated_hours": outcome.EstimatedHours, "actual_hours": outcome.ActualHours,
			"success": outcome.Success, "blockers": outcome.Blockers,
		}
		key := outcome.TaskID + "_" + outcome.AgentID + "_" + now.Format(time.RFC3339Nano)
		if err := m.backing.Store("task_outcomes", key, payload); err != nil {
			logging.Get(logging.CategoryMemory).Warn("failed to persist outcome for %s: %v", taskID, err)
		}
	}

	if m.bus != nil {
		m.bus.Publish(eventbus.TaskCompleted, "memory", map[string]interface{}{
			"agent_id": agentID, "task_id": taskID, "success": success,
		}, nil, false)
	}
	return &outcome
}

func timePtr(t time.Time) *time.Time { return &t }

const maxRecentEvents = 200

// recordRecentEventLocked appends to the working tier's recent-events log,
// trimmed to the most recent 200. Caller must hold m.mu.
func (m *Memory) recordRecentEventLocked(summary string) {
	m.recentEvents = append(m.recentEvents, summary)
	if len(m.recentEvents) > maxRecentEvents {
		m.recentEvents = m.recentEvents[len(m.recentEvents)-maxRecentEvents:]
	}
}

// updateAgentProfile increments counts and EMA-updates skill success
// rates, estimation accuracy, and blocker frequency, then persists the
// updated profile under agent_profiles for downstream tooling.
func (m *Memory) updateAgentProfile(agentID string, outcome domain.TaskOutcome, task *domain.Task) {
	lr := m.cfg.LearningRate
	m.mu.Lock()

	profile, ok := m.agentProfiles[agentID]
	if !ok {
		profile = domain.NewAgentProfile(agentID)
		m.agentProfiles[agentID] = profile
	}

	profile.TotalTasks++
	if outcome.Success {
		profile.SuccessfulTasks++
	} else {
		profile.FailedTasks++
	}
	if len(outcome.Blockers) > 0 {
		profile.BlockedTasks++
	}

	successVal := 0.0
	if outcome.Success {
		successVal = 1.0
	}
	for _, label := range task.Labels {
		old, ok := profile.SkillSuccessRates[label]
		if !ok {
			old = 0.5
		}
		profile.SkillSuccessRates[label] = old*(1-lr) + successVal*lr
	}

	profile.AverageEstimationAccuracy = profile.AverageEstimationAccuracy*(1-lr) + outcome.EstimationAccuracy()*lr

	for _, b := range outcome.Blockers {
		profile.CommonBlockers[b]++
	}

	snapshot := *profile
	m.mu.Unlock()

	if m.backing != nil {
		payload := map[string]interface{}{
			"agent_id":                    snapshot.AgentID,
			"total_tasks":                 snapshot.TotalTasks,
			"successful_tasks":            snapshot.SuccessfulTasks,
			"failed_tasks":                snapshot.FailedTasks,
			"blocked_tasks":               snapshot.BlockedTasks,
			"skill_success_rates":         snapshot.SkillSuccessRates,
			"average_estimation_accuracy": snapshot.AverageEstimationAccuracy,
			"common_blockers":             snapshot.CommonBlockers,
		}
		if err := m.backing.Store("agent_profiles", agentID, payload); err != nil {
			logging.Get(logging.CategoryMemory).Warn("failed to persist agent profile for %s: %v", agentID, err)
		}
	}
}

// learnTaskPatterns updates the pattern keyed by the task's sorted label
// set.
func (m *Memory) learnTaskPatterns(outcome domain.TaskOutcome, task *domain.Task) {
	key := PatternKey(task.Labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.taskPatterns[key]
	if !ok {
		p = &domain.TaskPattern{
			PatternType:    key,
			TaskLabels:     append([]string(nil), task.Labels...),
			CommonBlockers: make(map[string]int),
		}
		m.taskPatterns[key] = p
	}
	p.AddDuration(outcome.ActualHours)

	successVal := 0.0
	if outcome.Success {
		successVal = 1.0
	}
	p.SuccessRate = p.SuccessRate*0.9 + successVal*0.1

	for _, b := range outcome.Blockers {
		p.CommonBlockers[b]++
	}
	if outcome.Success {
		p.BestAgents = append(p.BestAgents, outcome.AgentID)
	}
}

// PatternKey mirrors §4.5's pattern_key derivation: sorted labels joined
// by "_".
func PatternKey(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, "_")
}

// UpdateProjectTasks replaces working.all_tasks with the latest project
// snapshot and persists each task under project_tasks for downstream
// tooling.
func (m *Memory) UpdateProjectTasks(tasks []*domain.Task) {
	m.mu.Lock()
	m.allTasks = make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		m.allTasks[t.ID] = t
	}
	m.mu.Unlock()

	if m.backing == nil {
		return
	}
	for _, t := range tasks {
		payload := map[string]interface{}{
			"id": t.ID, "name": t.Name, "status": string(t.Status),
			"priority": string(t.Priority), "assigned_to": t.AssignedTo,
			"estimated_hours": t.EstimatedHours, "actual_hours": t.ActualHours,
			"dependencies": t.Dependencies, "labels": t.Labels,
		}
		if err := m.backing.Store("project_tasks", t.ID, payload); err != nil {
			logging.Get(logging.CategoryMemory).Warn("failed to persist project task %s: %v", t.ID, err)
		}
	}
}

// GetGlobalMedianDuration prefers the backend's SQL median over
// successful outcomes with actual_hours > 0, falling back to an
// in-memory median, defaulting to 1.0 with no history.
func (m *Memory) GetGlobalMedianDuration() float64 {
	if m.median != nil {
		if v, err := m.median.CalculateMedianTaskDuration(); err == nil && v > 0 {
			return v
		}
	}

	m.mu.RLock()
	var durations []float64
	for _, o := range m.outcomes {
		if o.Success && o.ActualHours > 0 {
			durations = append(durations, o.ActualHours)
		}
	}
	m.mu.RUnlock()

	if len(durations) == 0 {
		return 1.0
	}
	return medianOf(durations)
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// FindSimilarOutcomes sorts outcomes by name-word Jaccard similarity to
// task, descending, returning the top limit.
func (m *Memory) FindSimilarOutcomes(task *domain.Task, limit int) []domain.TaskOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		outcome domain.TaskOutcome
		score   float64
	}
	scoredList := make([]scored, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		scoredList = append(scoredList, scored{o, similarity(task.Name, o.TaskName)})
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].score > scoredList[j].score })

	if limit <= 0 || limit > len(scoredList) {
		limit = len(scoredList)
	}
	out := make([]domain.TaskOutcome, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, scoredList[i].outcome)
	}
	return out
}

// similarity implements rule: word-overlap ratio >= 0.3, OR
// sharing a technical term, counts as similar; returns a continuous score
// (Jaccard) that also orders non-similar pairs sensibly.
func similarity(a, b string) float64 {
	j := textutil.JaccardWords(a, b)
	if j >= 0.3 || textutil.SharesTechnicalTerm(a, b) {
		if j == 0 {
			return 0.3 // floor so technical-term matches still rank above unrelated pairs
		}
		return j
	}
	return j
}

// isSimilar applies boolean similarity rule directly.
func isSimilar(a, b string) bool {
	return textutil.JaccardWords(a, b) >= 0.3 || textutil.SharesTechnicalTerm(a, b)
}

func (m *Memory) agentProfileSnapshot(agentID string) (domain.AgentProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.agentProfiles[agentID]
	if !ok {
		return domain.AgentProfile{}, false
	}
	return *p, true
}

func (m *Memory) patternSnapshot(labels []string) (domain.TaskPattern, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.taskPatterns[PatternKey(labels)]
	if !ok {
		return domain.TaskPattern{}, false
	}
	return *p, true
}

// RecentEvents returns a snapshot of the working tier's recent-events log.
func (m *Memory) RecentEvents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.recentEvents...)
}

func (m *Memory) agentOutcomes(agentID string) []domain.TaskOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TaskOutcome
	for _, o := range m.outcomes {
		if o.AgentID == agentID {
			out = append(out, o)
		}
	}
	return out
}
