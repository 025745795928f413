package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

// TaskInstanceRepository is an in-memory task store for tests and local runs
type TaskInstanceRepository struct {
	mu    sync.RWMutex
	tasks map[string]*instance.TaskInstance
}

// NewTaskInstanceRepository creates an empty in-memory task store
func NewTaskInstanceRepository() repository.TaskInstanceRepository {
	return &TaskInstanceRepository{tasks: make(map[string]*instance.TaskInstance)}
}

// Create persists a new task instance
func (r *TaskInstanceRepository) Create(ctx context.Context, t *instance.TaskInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := t.ID().String()
	if _, exists := r.tasks[key]; exists {
		return fmt.Errorf("task instance %s already exists", key)
	}
	r.tasks[key] = copyTask(t)
	return nil
}

// FindByID retrieves a task instance by ID
func (r *TaskInstanceRepository) FindByID(ctx context.Context, id model.TaskInstanceID) (*instance.TaskInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[id.String()]
	if !exists {
		return nil, fmt.Errorf("task instance %s: %w", id, model.ErrNotFound)
	}
	return copyTask(t), nil
}

// Save persists the current state of an existing task instance
func (r *TaskInstanceRepository) Save(ctx context.Context, t *instance.TaskInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := t.ID().String()
	if _, exists := r.tasks[key]; !exists {
		return fmt.Errorf("task instance %s: %w", key, model.ErrNotFound)
	}
	r.tasks[key] = copyTask(t)
	return nil
}

// ListByActor retrieves instances assigned to an actor, newest first
func (r *TaskInstanceRepository) ListByActor(ctx context.Context, actorID model.ActorID) ([]*instance.TaskInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*instance.TaskInstance
	for _, t := range r.tasks {
		if a := t.AssignedActorID(); a != nil && a.Equals(actorID) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out, nil
}

// copyTask round-trips through Reconstruct so stored state cannot be
// mutated outside Save
func copyTask(t *instance.TaskInstance) *instance.TaskInstance {
	var actor *model.ActorID
	if a := t.AssignedActorID(); a != nil {
		v := *a
		actor = &v
	}
	var startedAt, completedAt *time.Time
	if ts := t.StartedAt(); ts != nil {
		v := ts.Value()
		startedAt = &v
	}
	if ts := t.CompletedAt(); ts != nil {
		v := ts.Value()
		completedAt = &v
	}
	return instance.Reconstruct(
		t.ID(),
		t.TaskType(),
		actor,
		t.TargetEntityID(),
		t.Status(),
		t.CurrentStepOrder(),
		t.CreatedAt().Value(),
		startedAt,
		completedAt,
		t.CancelReason(),
	)
}
