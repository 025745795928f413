package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

// StepExecutionRepository is an in-memory append-only step record store for
// tests and local runs
type StepExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string][]*instance.StepExecution // taskInstanceID -> records
}

// NewStepExecutionRepository creates an empty in-memory step execution store
func NewStepExecutionRepository() repository.StepExecutionRepository {
	return &StepExecutionRepository{executions: make(map[string][]*instance.StepExecution)}
}

// Create persists a captured step result
func (r *StepExecutionRepository) Create(ctx context.Context, e *instance.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := e.TaskInstanceID().String()
	r.executions[key] = append(r.executions[key], e)
	return nil
}

// FindLatestByStep retrieves the most recent execution for a step order
func (r *StepExecutionRepository) FindLatestByStep(ctx context.Context, taskID model.TaskInstanceID, stepOrder int) (*instance.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *instance.StepExecution
	for _, e := range r.executions[taskID.String()] {
		if e.StepOrder() != stepOrder {
			continue
		}
		if latest == nil || e.ID().String() > latest.ID().String() {
			latest = e
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("step %d of task %s: %w", stepOrder, taskID, model.ErrNotFound)
	}
	return latest, nil
}

// ListByTask retrieves all executions for a task ordered by step, then capture time
func (r *StepExecutionRepository) ListByTask(ctx context.Context, taskID model.TaskInstanceID) ([]*instance.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.executions[taskID.String()]
	out := make([]*instance.StepExecution, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepOrder() != out[j].StepOrder() {
			return out[i].StepOrder() < out[j].StepOrder()
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}
