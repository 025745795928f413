package repository

import (
	"context"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
)

// TaskInstanceRepository persists task instances. Each Save is one atomic
// write; a state transition is never split across calls.
type TaskInstanceRepository interface {
	// Create persists a new task instance in CREATED state
	Create(ctx context.Context, t *instance.TaskInstance) error

	// FindByID retrieves a task instance; model.ErrNotFound when absent
	FindByID(ctx context.Context, id model.TaskInstanceID) (*instance.TaskInstance, error)

	// Save persists the current state of an existing task instance
	Save(ctx context.Context, t *instance.TaskInstance) error

	// ListByActor retrieves instances assigned to an actor, newest first
	ListByActor(ctx context.Context, actorID model.ActorID) ([]*instance.TaskInstance, error)
}
