// Package kanban defines the abstract Kanban provider the Coordinator
// façade consumes and the description round-trip codec that
// lets the core extract original-id mappings, estimated hours, priority,
// and dependency lists from a Kanban card's free-text description. The
// concrete remote client is out of scope; this package only
// specifies the contract and the byte-exact codec property 10
// requires.
package kanban

import (
	"context"

	"coordinator/internal/domain"
)

// Provider is the abstract Kanban integration the coordinator façade
// depends on. A concrete implementation talks to the remote
// board over its own JSON/stdio protocol; this core never assumes one.
type Provider interface {
	GetAllTasks(ctx context.Context) ([]*domain.Task, error)
	GetAvailableTasks(ctx context.Context) ([]*domain.Task, error)
	AssignTask(ctx context.Context, taskID, agentID string) error
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error
	AddComment(ctx context.Context, taskID, text string) error
	CompleteTask(ctx context.Context, taskID string) error
	CreateTask(ctx context.Context, data TaskData) (*domain.Task, error)
}

// TaskData is the input shape for CreateTask: everything needed to
// render a description via Encode before handing it to the remote board.
type TaskData struct {
	Name           string
	Description    string
	OriginalID     string
	EstimatedHours float64
	Priority       domain.Priority
	Dependencies   []string
	Labels         []string
}
