package instance

import (
	"fmt"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
)

// TaskInstance is one concrete occurrence of a task assigned to an actor
// against a target entity (machine or bunker code). It is created externally
// in CREATED state and mutated only through the guarded transitions below.
// Terminal instances are retained for audit, never deleted.
type TaskInstance struct {
	id               model.TaskInstanceID
	taskType         model.TaskType
	assignedActorID  *model.ActorID
	targetEntityID   string
	status           model.TaskStatus
	currentStepOrder int
	createdAt        model.Timestamp
	startedAt        *model.Timestamp
	completedAt      *model.Timestamp
	cancelReason     string
}

// New creates a task instance in CREATED state
func New(taskType model.TaskType, targetEntityID string) (*TaskInstance, error) {
	if !taskType.IsValid() {
		return nil, fmt.Errorf("invalid task type %q", taskType)
	}
	if targetEntityID == "" {
		return nil, fmt.Errorf("target entity ID cannot be empty")
	}
	return &TaskInstance{
		id:             model.NewTaskInstanceID(),
		taskType:       taskType,
		targetEntityID: targetEntityID,
		status:         model.StatusCreated,
		createdAt:      model.NewTimestamp(),
	}, nil
}

// Reconstruct restores a task instance from persisted data
func Reconstruct(
	id model.TaskInstanceID,
	taskType model.TaskType,
	assignedActorID *model.ActorID,
	targetEntityID string,
	status model.TaskStatus,
	currentStepOrder int,
	createdAt time.Time,
	startedAt *time.Time,
	completedAt *time.Time,
	cancelReason string,
) *TaskInstance {
	t := &TaskInstance{
		id:               id,
		taskType:         taskType,
		assignedActorID:  assignedActorID,
		targetEntityID:   targetEntityID,
		status:           status,
		currentStepOrder: currentStepOrder,
		createdAt:        model.NewTimestampFromTime(createdAt),
		cancelReason:     cancelReason,
	}
	if startedAt != nil {
		ts := model.NewTimestampFromTime(*startedAt)
		t.startedAt = &ts
	}
	if completedAt != nil {
		ts := model.NewTimestampFromTime(*completedAt)
		t.completedAt = &ts
	}
	return t
}

// ID returns the task instance ID
func (t *TaskInstance) ID() model.TaskInstanceID { return t.id }

// TaskType returns the task type
func (t *TaskInstance) TaskType() model.TaskType { return t.taskType }

// AssignedActorID returns the assigned actor, nil while CREATED
func (t *TaskInstance) AssignedActorID() *model.ActorID { return t.assignedActorID }

// TargetEntityID returns the machine or bunker code the task targets
func (t *TaskInstance) TargetEntityID() string { return t.targetEntityID }

// Status returns the current status
func (t *TaskInstance) Status() model.TaskStatus { return t.status }

// CurrentStepOrder returns the 1-based order of the step awaiting submission;
// zero until the task is started
func (t *TaskInstance) CurrentStepOrder() int { return t.currentStepOrder }

// CreatedAt returns the creation timestamp
func (t *TaskInstance) CreatedAt() model.Timestamp { return t.createdAt }

// StartedAt returns when execution began, nil before the first start
func (t *TaskInstance) StartedAt() *model.Timestamp { return t.startedAt }

// CompletedAt returns the completion timestamp, nil until COMPLETED
func (t *TaskInstance) CompletedAt() *model.Timestamp { return t.completedAt }

// CancelReason returns the reason recorded on cancellation
func (t *TaskInstance) CancelReason() string { return t.cancelReason }

// Assign transitions CREATED -> ASSIGNED
func (t *TaskInstance) Assign(actorID model.ActorID) error {
	if t.status.IsTerminal() {
		return model.ErrTaskAlreadyTerminal
	}
	if t.status != model.StatusCreated {
		return model.ErrAlreadyAssigned
	}
	t.status = model.StatusAssigned
	t.assignedActorID = &actorID
	return nil
}

// Start transitions ASSIGNED -> IN_PROGRESS. A task resumed after an idle
// revert keeps its persisted step position; a first start begins at step 1.
func (t *TaskInstance) Start(actorID model.ActorID) error {
	if t.status.IsTerminal() {
		return model.ErrTaskAlreadyTerminal
	}
	if t.assignedActorID == nil || !t.assignedActorID.Equals(actorID) {
		return model.ErrNotAssignedToActor
	}
	if t.status == model.StatusInProgress {
		return model.ErrActorBusy
	}
	if !t.status.CanTransitionTo(model.StatusInProgress) {
		return model.ErrNotAssignedToActor
	}
	t.status = model.StatusInProgress
	now := model.NewTimestamp()
	t.startedAt = &now
	if t.currentStepOrder == 0 {
		t.currentStepOrder = 1
	}
	return nil
}

// Advance moves to the next step after a successful submission. totalSteps
// is the catalog step count for the task type; submitting the final step
// transitions to COMPLETED.
func (t *TaskInstance) Advance(totalSteps int) error {
	if t.status != model.StatusInProgress {
		return model.ErrTaskAlreadyTerminal
	}
	if t.currentStepOrder >= totalSteps {
		t.status = model.StatusCompleted
		now := model.NewTimestamp()
		t.completedAt = &now
		return nil
	}
	t.currentStepOrder++
	return nil
}

// Cancel transitions any non-terminal state to CANCELLED. Irreversible.
func (t *TaskInstance) Cancel(reason string) error {
	if t.status.IsTerminal() {
		return model.ErrTaskAlreadyTerminal
	}
	t.status = model.StatusCancelled
	t.cancelReason = reason
	return nil
}

// RevertIdle transitions IN_PROGRESS back to ASSIGNED after a session idle
// timeout. Step progress is preserved so a later start resumes in place.
func (t *TaskInstance) RevertIdle() error {
	if t.status != model.StatusInProgress {
		return model.ErrTaskAlreadyTerminal
	}
	t.status = model.StatusAssigned
	return nil
}
