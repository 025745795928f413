package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/repository"
)

// TaskInstanceRepositoryImpl implements repository.TaskInstanceRepository
// with SQLite
type TaskInstanceRepositoryImpl struct {
	db *sql.DB
}

// NewTaskInstanceRepository creates a new SQLite-based task instance repository
func NewTaskInstanceRepository(db *sql.DB) repository.TaskInstanceRepository {
	return &TaskInstanceRepositoryImpl{db: db}
}

// Create persists a new task instance
func (r *TaskInstanceRepositoryImpl) Create(ctx context.Context, t *instance.TaskInstance) error {
	query := `
		INSERT INTO task_instances
			(id, task_type, assigned_actor_id, target_entity_id, status, current_step_order, created_at, started_at, completed_at, cancel_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, taskInstanceArgs(t)...)
	if err != nil {
		return fmt.Errorf("insert task instance: %w", err)
	}
	return nil
}

// Save persists the current state of an existing task instance
func (r *TaskInstanceRepositoryImpl) Save(ctx context.Context, t *instance.TaskInstance) error {
	query := `
		UPDATE task_instances
		SET task_type = ?, assigned_actor_id = ?, target_entity_id = ?, status = ?,
			current_step_order = ?, created_at = ?, started_at = ?, completed_at = ?, cancel_reason = ?
		WHERE id = ?
	`
	args := taskInstanceArgs(t)
	// Rotate the ID to the WHERE clause.
	args = append(args[1:], args[0])

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task instance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task instance %s: %w", t.ID(), model.ErrNotFound)
	}
	return nil
}

// FindByID retrieves a task instance by ID
func (r *TaskInstanceRepositoryImpl) FindByID(ctx context.Context, id model.TaskInstanceID) (*instance.TaskInstance, error) {
	query := `
		SELECT id, task_type, assigned_actor_id, target_entity_id, status, current_step_order, created_at, started_at, completed_at, cancel_reason
		FROM task_instances
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id.String())
	t, err := scanTaskInstance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task instance %s: %w", id, model.ErrNotFound)
	}
	return t, err
}

// ListByActor retrieves instances assigned to an actor, newest first
func (r *TaskInstanceRepositoryImpl) ListByActor(ctx context.Context, actorID model.ActorID) ([]*instance.TaskInstance, error) {
	query := `
		SELECT id, task_type, assigned_actor_id, target_entity_id, status, current_step_order, created_at, started_at, completed_at, cancel_reason
		FROM task_instances
		WHERE assigned_actor_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, actorID.String())
	if err != nil {
		return nil, fmt.Errorf("query task instances: %w", err)
	}
	defer rows.Close()

	var instances []*instance.TaskInstance
	for rows.Next() {
		t, err := scanTaskInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		instances = append(instances, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task instances: %w", err)
	}
	return instances, nil
}

func taskInstanceArgs(t *instance.TaskInstance) []any {
	var actorID any
	if a := t.AssignedActorID(); a != nil {
		actorID = a.String()
	}
	var startedAt, completedAt any
	if ts := t.StartedAt(); ts != nil {
		startedAt = ts.Value().Format(time.RFC3339Nano)
	}
	if ts := t.CompletedAt(); ts != nil {
		completedAt = ts.Value().Format(time.RFC3339Nano)
	}
	return []any{
		t.ID().String(),
		t.TaskType().String(),
		actorID,
		t.TargetEntityID(),
		t.Status().String(),
		t.CurrentStepOrder(),
		t.CreatedAt().Value().Format(time.RFC3339Nano),
		startedAt,
		completedAt,
		t.CancelReason(),
	}
}

func scanTaskInstance(scan func(dest ...any) error) (*instance.TaskInstance, error) {
	var (
		idStr            string
		taskType         string
		actorIDStr       sql.NullString
		targetEntityID   string
		status           string
		currentStepOrder int
		createdAtStr     string
		startedAtStr     sql.NullString
		completedAtStr   sql.NullString
		cancelReason     string
	)
	if err := scan(&idStr, &taskType, &actorIDStr, &targetEntityID, &status,
		&currentStepOrder, &createdAtStr, &startedAtStr, &completedAtStr, &cancelReason); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan task instance: %w", err)
	}

	id, err := model.NewTaskInstanceIDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid task instance ID: %w", err)
	}
	var actorID *model.ActorID
	if actorIDStr.Valid {
		a, err := model.NewActorID(actorIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("invalid actor ID: %w", err)
		}
		actorID = &a
	}
	createdAt, err := parseStoredTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	var startedAt, completedAt *time.Time
	if startedAtStr.Valid {
		ts, err := parseStoredTime(startedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		startedAt = &ts
	}
	if completedAtStr.Valid {
		ts, err := parseStoredTime(completedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		completedAt = &ts
	}

	return instance.Reconstruct(
		id,
		model.TaskType(taskType),
		actorID,
		targetEntityID,
		model.TaskStatus(status),
		currentStepOrder,
		createdAt,
		startedAt,
		completedAt,
		cancelReason,
	), nil
}

// parseStoredTime reads RFC3339Nano with an RFC3339 fallback for rows
// written by older builds
func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
