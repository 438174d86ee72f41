package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"coordinator/internal/domain"
	"coordinator/internal/kanban"
)

// fileProvider is a minimal kanban.Provider backed by a single JSON file
// of tasks, for running the CLI against a local board snapshot rather
// than a real remote Kanban service (out of scope per this module's own
// boundary — see internal/kanban's package doc).
type fileProvider struct {
	path string
}

func newFileProvider(path string) *fileProvider {
	return &fileProvider{path: path}
}

func (f *fileProvider) load() ([]*domain.Task, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	var tasks []*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return tasks, nil
}

func (f *fileProvider) save(tasks []*domain.Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

func (f *fileProvider) GetAllTasks(ctx context.Context) ([]*domain.Task, error) {
	return f.load()
}

func (f *fileProvider) GetAvailableTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := f.load()
	if err != nil {
		return nil, err
	}
	var available []*domain.Task
	for _, t := range tasks {
		if t.Status == domain.StatusTodo && t.AssignedTo == "" {
			available = append(available, t)
		}
	}
	return available, nil
}

func (f *fileProvider) AssignTask(ctx context.Context, taskID, agentID string) error {
	tasks, err := f.load()
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			t.AssignedTo = agentID
			return f.save(tasks)
		}
	}
	return fmt.Errorf("task %s not found", taskID)
}

func (f *fileProvider) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) error {
	tasks, err := f.load()
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			t.Status = status
			return f.save(tasks)
		}
	}
	return fmt.Errorf("task %s not found", taskID)
}

func (f *fileProvider) AddComment(ctx context.Context, taskID, text string) error {
	return nil
}

func (f *fileProvider) CompleteTask(ctx context.Context, taskID string) error {
	return f.UpdateTaskStatus(ctx, taskID, domain.StatusDone)
}

func (f *fileProvider) CreateTask(ctx context.Context, data kanban.TaskData) (*domain.Task, error) {
	tasks, err := f.load()
	if err != nil {
		return nil, err
	}
	task := &domain.Task{
		ID:             uuid.NewString(),
		Name:           data.Name,
		Description:    kanban.Encode(data),
		Status:         domain.StatusTodo,
		Priority:       data.Priority,
		EstimatedHours: data.EstimatedHours,
		Dependencies:   data.Dependencies,
		Labels:         data.Labels,
	}
	tasks = append(tasks, task)
	if err := f.save(tasks); err != nil {
		return nil, err
	}
	return task, nil
}
