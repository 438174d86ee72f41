// Package contextstore implements per-task implementation facts,
// architectural decisions, dependent-task records, pattern extraction,
// baseline dependency inference, and suggested execution order. It is
// an in-memory cache fronting a durable backend, guarded by its own
// lock rather than the backend's.
package contextstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coordinator/internal/domain"
	"coordinator/internal/eventbus"
	"coordinator/internal/logging"
	"coordinator/internal/persistence"
)

type implementationRecord struct {
	details  map[string]interface{}
	storedAt time.Time
}

type patternEntry struct {
	taskID   string
	pattern  map[string]interface{}
	storedAt time.Time
}

// Store is the context store component.
type Store struct {
	bus     *eventbus.Bus
	backing persistence.Store

	mu              sync.RWMutex
	implementations map[string]implementationRecord
	patternsByType  map[string][]patternEntry
	dependents      map[string][]domain.DependentTask
	decisions       []domain.Decision
	decisionSeq     atomic.Uint64
}

// New builds a context store backed by bus for event emission and backing
// for durable persistence.
func New(bus *eventbus.Bus, backing persistence.Store) *Store {
	return &Store{
		bus:             bus,
		backing:         backing,
		implementations: make(map[string]implementationRecord),
		patternsByType:  make(map[string][]patternEntry),
		dependents:      make(map[string][]domain.DependentTask),
	}
}

// AddImplementation stores details under taskID with a timestamp. If
// details["patterns"] is present (a []map[string]interface{} or
// []interface{} of such maps), each is indexed under its "type" field.
func (s *Store) AddImplementation(taskID string, details map[string]interface{}) {
	now := time.Now().UTC()
	copied := make(map[string]interface{}, len(details))
	for k, v := range details {
		copied[k] = v
	}

	s.mu.Lock()
	s.implementations[taskID] = implementationRecord{details: copied, storedAt: now}
	if raw, ok := details["patterns"]; ok {
		for _, p := range asPatternMaps(raw) {
			ptype, _ := p["type"].(string)
			if ptype == "" {
				ptype = "unknown"
			}
			s.patternsByType[ptype] = append(s.patternsByType[ptype], patternEntry{
				taskID: taskID, pattern: p, storedAt: now,
			})
		}
	}
	s.mu.Unlock()

	log := logging.Get(logging.CategoryContextStore)
	if s.backing != nil {
		if perr := s.backing.Store("implementations", taskID, copied); perr != nil {
			log.Warn("failed to persist implementation for %s: %v", taskID, perr)
		}
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.ImplementationFound, "context_store", map[string]interface{}{
			"task_id": taskID,
		}, nil, false)
	}
}

func asPatternMaps(raw interface{}) []map[string]interface{} {
	switch v := raw.(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// AddDependency records that some task depends on taskID.
func (s *Store) AddDependency(taskID string, dep domain.DependentTask) {
	s.mu.Lock()
	s.dependents[taskID] = append(s.dependents[taskID], dep)
	s.mu.Unlock()
}

// LogDecision assigns a fresh monotonic id, appends, persists, and emits
// decision_logged.
func (s *Store) LogDecision(agentID, taskID, what, why, impact string) domain.Decision {
	seq := s.decisionSeq.Add(1)
	d := domain.Decision{
		DecisionID: fmt.Sprintf("decision-%d", seq),
		TaskID:     taskID,
		AgentID:    agentID,
		Timestamp:  time.Now().UTC(),
		What:       what,
		Why:        why,
		Impact:     impact,
	}

	s.mu.Lock()
	s.decisions = append(s.decisions, d)
	s.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.Store("decisions", d.DecisionID, map[string]interface{}{
			"task_id": d.TaskID, "agent_id": d.AgentID, "what": d.What, "why": d.Why, "impact": d.Impact,
		}); err != nil {
			logging.Get(logging.CategoryContextStore).Warn("failed to persist decision %s: %v", d.DecisionID, err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.DecisionLogged, "context_store", map[string]interface{}{
			"decision_id": d.DecisionID, "task_id": taskID,
		}, nil, false)
	}
	return d
}

// GetContext assembles the context bundle for a task about to be
// assigned, given the ids of the tasks it depends on.
func (s *Store) GetContext(taskID string, dependencyTaskIDs []string) domain.TaskContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prev := make(map[string]map[string]interface{})
	for _, depID := range dependencyTaskIDs {
		if rec, ok := s.implementations[depID]; ok {
			prev[depID] = rec.details
		}
	}

	dependentTasks := append([]domain.DependentTask(nil), s.dependents[taskID]...)

	related := make(map[string][]map[string]interface{}, len(s.patternsByType))
	for ptype, entries := range s.patternsByType {
		sorted := append([]patternEntry(nil), entries...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].storedAt.After(sorted[j].storedAt) })
		n := 3
		if len(sorted) < n {
			n = len(sorted)
		}
		top := make([]map[string]interface{}, 0, n)
		for i := 0; i < n; i++ {
			top = append(top, sorted[i].pattern)
		}
		related[ptype] = top
	}

	depSet := make(map[string]bool, len(dependencyTaskIDs))
	for _, id := range dependencyTaskIDs {
		depSet[id] = true
	}
	var decisions []domain.Decision
	for _, d := range s.decisions {
		if depSet[d.TaskID] || strings.Contains(d.Impact, taskID) {
			decisions = append(decisions, d)
		}
	}
	sort.Slice(decisions, func(i, j int) bool { return decisions[i].Timestamp.After(decisions[j].Timestamp) })
	if len(decisions) > 5 {
		decisions = decisions[:5]
	}

	ctx := domain.TaskContext{
		TaskID:                  taskID,
		PreviousImplementations: prev,
		DependentTasks:          dependentTasks,
		RelatedPatterns:         related,
		ArchitecturalDecisions:  decisions,
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.ContextUpdated, "context_store", map[string]interface{}{
			"task_id":                   taskID,
			"previous_implementations":  len(prev),
			"dependent_tasks":           len(dependentTasks),
			"architectural_decisions":   len(decisions),
		}, nil, false)
	}
	return ctx
}

// GetDecisionsForTask filters the in-memory decision log.
func (s *Store) GetDecisionsForTask(taskID string) []domain.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Decision
	for _, d := range s.decisions {
		if d.TaskID == taskID {
			out = append(out, d)
		}
	}
	return out
}

// ClearOldData prunes implementations and decisions older than the cutoff
// and returns the counts removed.
func (s *Store) ClearOldData(days int) (implementationsRemoved, decisionsRemoved int) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	s.mu.Lock()
	for id, rec := range s.implementations {
		if rec.storedAt.Before(cutoff) {
			delete(s.implementations, id)
			implementationsRemoved++
		}
	}
	kept := s.decisions[:0:0]
	for _, d := range s.decisions {
		if d.Timestamp.Before(cutoff) {
			decisionsRemoved++
			continue
		}
		kept = append(kept, d)
	}
	s.decisions = kept
	s.mu.Unlock()

	if s.backing != nil {
		if _, err := s.backing.ClearOlderThan("implementations", days); err != nil {
			logging.Get(logging.CategoryContextStore).Warn("clear_old_data implementations: %v", err)
		}
		if _, err := s.backing.ClearOlderThan("decisions", days); err != nil {
			logging.Get(logging.CategoryContextStore).Warn("clear_old_data decisions: %v", err)
		}
	}
	return
}
