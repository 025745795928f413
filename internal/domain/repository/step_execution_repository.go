package repository

import (
	"context"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
)

// StepExecutionRepository persists immutable step results. Records are only
// ever created; corrections create superseding records.
type StepExecutionRepository interface {
	// Create persists a captured step result
	Create(ctx context.Context, e *instance.StepExecution) error

	// FindLatestByStep retrieves the most recent (non-superseded) execution
	// for a task's step order; model.ErrNotFound when the step has no record
	FindLatestByStep(ctx context.Context, taskID model.TaskInstanceID, stepOrder int) (*instance.StepExecution, error)

	// ListByTask retrieves all executions for a task ordered by step order,
	// then capture time (supersessions appear after their originals)
	ListByTask(ctx context.Context, taskID model.TaskInstanceID) ([]*instance.StepExecution, error)
}
