package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

// StepExecutionRepositoryImpl implements repository.StepExecutionRepository
// with SQLite. Rows are append-only; corrections insert superseding rows.
type StepExecutionRepositoryImpl struct {
	db *sql.DB
}

// NewStepExecutionRepository creates a new SQLite-based step execution repository
func NewStepExecutionRepository(db *sql.DB) repository.StepExecutionRepository {
	return &StepExecutionRepositoryImpl{db: db}
}

// Create persists a captured step result
func (r *StepExecutionRepositoryImpl) Create(ctx context.Context, e *instance.StepExecution) error {
	captured, err := json.Marshal(e.CapturedFields())
	if err != nil {
		return fmt.Errorf("marshal captured fields: %w", err)
	}

	var supersedes any
	if s := e.Supersedes(); s != nil {
		supersedes = s.String()
	}

	query := `
		INSERT INTO step_executions
			(id, task_instance_id, step_template_id, step_order, captured_fields, actor_id, completed_at, supersedes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID().String(),
		e.TaskInstanceID().String(),
		e.StepTemplateID(),
		e.StepOrder(),
		string(captured),
		e.ActorID().String(),
		e.CompletedAt().Value().Format(time.RFC3339Nano),
		supersedes,
	)
	if err != nil {
		return fmt.Errorf("insert step execution: %w", err)
	}
	return nil
}

// FindLatestByStep retrieves the most recent execution for a step order.
// ULIDs sort lexically by time, so MAX(id) is the latest capture.
func (r *StepExecutionRepositoryImpl) FindLatestByStep(ctx context.Context, taskID model.TaskInstanceID, stepOrder int) (*instance.StepExecution, error) {
	query := `
		SELECT id, task_instance_id, step_template_id, step_order, captured_fields, actor_id, completed_at, supersedes
		FROM step_executions
		WHERE task_instance_id = ? AND step_order = ?
		ORDER BY id DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, taskID.String(), stepOrder)
	e, err := scanStepExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("step %d of task %s: %w", stepOrder, taskID, model.ErrNotFound)
	}
	return e, err
}

// ListByTask retrieves all executions for a task ordered by step, then capture time
func (r *StepExecutionRepositoryImpl) ListByTask(ctx context.Context, taskID model.TaskInstanceID) ([]*instance.StepExecution, error) {
	query := `
		SELECT id, task_instance_id, step_template_id, step_order, captured_fields, actor_id, completed_at, supersedes
		FROM step_executions
		WHERE task_instance_id = ?
		ORDER BY step_order ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("query step executions: %w", err)
	}
	defer rows.Close()

	var executions []*instance.StepExecution
	for rows.Next() {
		e, err := scanStepExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step executions: %w", err)
	}
	return executions, nil
}

func scanStepExecution(scan func(dest ...any) error) (*instance.StepExecution, error) {
	var (
		idStr          string
		taskIDStr      string
		stepTemplateID string
		stepOrder      int
		capturedStr    string
		actorIDStr     string
		completedAtStr string
		supersedesStr  sql.NullString
	)
	if err := scan(&idStr, &taskIDStr, &stepTemplateID, &stepOrder,
		&capturedStr, &actorIDStr, &completedAtStr, &supersedesStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan step execution: %w", err)
	}

	id, err := instance.NewStepExecutionIDFromString(idStr)
	if err != nil {
		return nil, err
	}
	taskID, err := model.NewTaskInstanceIDFromString(taskIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid task instance ID: %w", err)
	}
	actorID, err := model.NewActorID(actorIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid actor ID: %w", err)
	}
	var captured model.FieldValues
	if err := json.Unmarshal([]byte(capturedStr), &captured); err != nil {
		return nil, fmt.Errorf("unmarshal captured fields: %w", err)
	}
	completedAt, err := parseStoredTime(completedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	var supersedes *instance.StepExecutionID
	if supersedesStr.Valid {
		s, err := instance.NewStepExecutionIDFromString(supersedesStr.String)
		if err != nil {
			return nil, err
		}
		supersedes = &s
	}

	return instance.ReconstructStepExecution(id, taskID, stepTemplateID, stepOrder, captured, actorID, completedAt, supersedes), nil
}
