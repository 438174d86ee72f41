// Package eventbus implements the in-process pub/sub bus: typed events,
// wildcard subscribers, bounded history, optional persistence, and a
// one-shot wait-for-event rendezvous.
package eventbus

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Type is one of the closed set of standard event kinds names.
type Type string

const (
	TaskRequested   Type = "task_requested"
	TaskAssigned    Type = "task_assigned"
	TaskStarted     Type = "task_started"
	TaskProgress    Type = "task_progress"
	TaskCompleted   Type = "task_completed"
	TaskBlocked     Type = "task_blocked"
	BlockerResolved Type = "blocker_resolved"

	AgentRegistered    Type = "agent_registered"
	AgentStatusChanged Type = "agent_status_changed"
	AgentSkillUpdated  Type = "agent_skill_updated"

	ProjectCreated   Type = "project_created"
	ProjectUpdated   Type = "project_updated"
	ProjectCompleted Type = "project_completed"

	SystemStartup  Type = "system_startup"
	SystemShutdown Type = "system_shutdown"
	KanbanConnected Type = "kanban_connected"
	KanbanError    Type = "kanban_error"

	ContextUpdated      Type = "context_updated"
	DependencyDetected  Type = "dependency_detected"
	ImplementationFound Type = "implementation_found"

	DecisionLogged  Type = "decision_logged"
	PatternDetected Type = "pattern_detected"

	PredictionMade Type = "prediction_made"
	AgentLearned   Type = "agent_learned"

	ErrorEvent   Type = "error"
	WarningEvent Type = "warning"

	// Wildcard subscribes to every event type.
	Wildcard Type = "*"
)

// Event is a single published occurrence.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      Type
	Source    string
	Data      map[string]interface{}
	Metadata  map[string]interface{}
}

var idCounter atomic.Uint64

// nextID assigns a monotonic per-process id concatenated with a
// timestamp, per ("Event ids are assigned from a process-local
// monotonic counter concatenated with a timestamp").
func nextID() string {
	n := idCounter.Add(1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), n)
}
