package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/catalog"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/repository"
	"github.com/vhm24/taskflow/internal/infrastructure/persistence/memory"
	"github.com/vhm24/taskflow/pkg/logger"
)

type workflowFixture struct {
	service  WorkflowService
	tasks    repository.TaskInstanceRepository
	execs    repository.StepExecutionRepository
	sessions repository.SessionRepository
	locks    *ActorLockMap
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	cat, err := catalog.LoadDefault()
	require.NoError(t, err)

	f := &workflowFixture{
		tasks:    memory.NewTaskInstanceRepository(),
		execs:    memory.NewStepExecutionRepository(),
		sessions: memory.NewSessionRepository(),
		locks:    NewActorLockMap(),
	}
	f.service = NewWorkflowService(
		cat, f.tasks, f.execs, f.sessions,
		NewValidationService(), f.locks,
		WorkflowServiceConfig{DependencyTimeout: time.Second},
		logger.Nop(),
	)
	return f
}

// newAssignedRefill creates a REFILL task already assigned to the actor.
func (f *workflowFixture) newAssignedRefill(t *testing.T, actor model.ActorID) model.TaskInstanceID {
	t.Helper()
	task, err := instance.New(model.TaskTypeRefill, "VM-042/B3")
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))
	_, err = f.service.Assign(context.Background(), task.ID(), actor)
	require.NoError(t, err)
	return task.ID()
}

func actor(t *testing.T, id string) model.ActorID {
	t.Helper()
	a, err := model.NewActorID(id)
	require.NoError(t, err)
	return a
}

func TestStartPresentsFirstStep(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)

	result, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, result.Task.Status())
	assert.Equal(t, 1, result.Task.CurrentStepOrder())
	assert.Equal(t, "scan_bunker", result.Step.Name())
}

func TestStartSecondTaskFailsActorBusy(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	first := f.newAssignedRefill(t, op)
	second := f.newAssignedRefill(t, op)

	_, err := f.service.Start(context.Background(), first, op)
	require.NoError(t, err)

	_, err = f.service.Start(context.Background(), second, op)
	assert.ErrorIs(t, err, model.ErrActorBusy)

	// The rejected task must be left untouched.
	task, err := f.service.GetTask(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, task.Status())
}

func TestSubmitStepOutOfOrder(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "450"})
	assert.ErrorIs(t, err, model.ErrStepOutOfOrder)

	// State unchanged; step 1 still pending.
	task, err := f.service.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, 1, task.CurrentStepOrder())
}

func TestRefillFlowCompletes(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)

	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	r1, err := f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)
	assert.Equal(t, "weigh_empty", r1.NextStep.Name())

	r2, err := f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "450"})
	require.NoError(t, err)
	assert.Equal(t, "weigh_full", r2.NextStep.Name())

	r3, err := f.service.SubmitStep(context.Background(), taskID, op, 3, map[string]string{"weight": "1250"})
	require.NoError(t, err)
	assert.True(t, r3.Completed)
	assert.Equal(t, model.StatusCompleted, r3.Task.Status())
	assert.NotNil(t, r3.Task.CompletedAt())

	// Session is closed on completion.
	_, err = f.service.ActiveTask(context.Background(), op)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Optional photo on the final step was captured as null.
	assert.True(t, r3.Execution.CapturedFields()["photo"].Null)
}

func TestSubmitStepIdempotentReplay(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	first, err := f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)

	replay, err := f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Execution.ID(), replay.Execution.ID(), "replay must not create a new record")
	assert.Equal(t, 2, replay.Task.CurrentStepOrder(), "replay must not advance the task")
	assert.Equal(t, "weigh_empty", replay.NextStep.Name())
}

func TestSubmitStepConflictingResubmission(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-99"})
	assert.ErrorIs(t, err, model.ErrConflictingResubmission)
}

func TestSubmitFinalStepReplayAfterCompletion(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "450"})
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 3, map[string]string{"weight": "1250"})
	require.NoError(t, err)

	// A retried final submission after the completion ack was lost.
	replay, err := f.service.SubmitStep(context.Background(), taskID, op, 3, map[string]string{"weight": "1250"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.True(t, replay.Completed)
}

func TestSubmitStepWrongActor(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	other := actor(t, "op-2")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, other, 1, map[string]string{"code": "BUNKER-17"})
	assert.ErrorIs(t, err, model.ErrNotAssignedToActor)
}

func TestValidationFailureLeavesStateUnchanged(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)

	_, err = f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "-5"})
	var vErr model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "weight", vErr.Field)

	// Same step retried with a valid value.
	result, err := f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "450"})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, 3, result.Task.CurrentStepOrder())
}

func TestCancelClosesSession(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(context.Background(), taskID, op, "machine offline"))

	task, err := f.service.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, task.Status())
	assert.Equal(t, "machine offline", task.CancelReason())

	_, err = f.service.ActiveTask(context.Background(), op)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Submissions against a cancelled task are rejected.
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	assert.ErrorIs(t, err, model.ErrTaskAlreadyTerminal)
}

func TestCancelByWrongActorRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	other := actor(t, "op-2")
	taskID := f.newAssignedRefill(t, op)

	err := f.service.Cancel(context.Background(), taskID, other, "not mine")
	assert.ErrorIs(t, err, model.ErrNotAssignedToActor)

	// ForceCancel ignores assignment.
	require.NoError(t, f.service.ForceCancel(context.Background(), taskID, "manager override"))
	task, err := f.service.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, task.Status())
}

func TestRevertIdlePreservesProgress(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)

	// Simulate a stale session.
	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.sessions.Touch(context.Background(), op, stale))

	reverted, err := f.service.RevertIdle(context.Background(), op, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, reverted)

	task, err := f.service.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, task.Status())
	assert.Equal(t, 2, task.CurrentStepOrder(), "captured progress must survive")

	// Resume continues at step 2, not step 1.
	result, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)
	assert.Equal(t, "weigh_empty", result.Step.Name())

	// Captured step 1 is still on record.
	replay, err := f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
}

func TestRevertIdleFreshSessionUntouched(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)

	reverted, err := f.service.RevertIdle(context.Background(), op, 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, reverted)

	task, err := f.service.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, task.Status())
}

func TestRevertIdleNoSession(t *testing.T) {
	f := newWorkflowFixture(t)
	reverted, err := f.service.RevertIdle(context.Background(), actor(t, "nobody"), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, reverted)
}

func TestSupersedeStepKeepsHistory(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	mgr := actor(t, "mgr-1")
	taskID := f.newAssignedRefill(t, op)
	_, err := f.service.Start(context.Background(), taskID, op)
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 1, map[string]string{"code": "BUNKER-17"})
	require.NoError(t, err)
	_, err = f.service.SubmitStep(context.Background(), taskID, op, 2, map[string]string{"weight": "450"})
	require.NoError(t, err)

	corrected, err := f.service.SupersedeStep(context.Background(), taskID, mgr, 2, map[string]string{"weight": "455"})
	require.NoError(t, err)
	assert.NotNil(t, corrected.Supersedes())

	all, err := f.execs.ListByTask(context.Background(), taskID)
	require.NoError(t, err)
	// Original step 1, original step 2, correction of step 2.
	assert.Len(t, all, 3)

	// Correcting the pending step is out of order.
	_, err = f.service.SupersedeStep(context.Background(), taskID, mgr, 3, map[string]string{"weight": "1"})
	assert.ErrorIs(t, err, model.ErrStepOutOfOrder)
}

func TestAssignGuards(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")
	other := actor(t, "op-2")
	taskID := f.newAssignedRefill(t, op)

	_, err := f.service.Assign(context.Background(), taskID, other)
	assert.ErrorIs(t, err, model.ErrAlreadyAssigned)

	_, err = f.service.Assign(context.Background(), model.NewTaskInstanceID(), op)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStartUnknownTaskTypeRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")

	// A catalog without INSPECTION steps rejects inspection tasks at start.
	limited, err := catalog.Parse([]byte(`
taskTypes:
  REFILL:
    - name: only
      fields:
        - name: code
          type: TEXT
`))
	require.NoError(t, err)
	f.service = NewWorkflowService(
		limited, f.tasks, f.execs, f.sessions,
		NewValidationService(), f.locks,
		WorkflowServiceConfig{DependencyTimeout: time.Second},
		logger.Nop(),
	)

	task, err := instance.New(model.TaskTypeInspection, "VM-042")
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))
	_, err = f.service.Assign(context.Background(), task.ID(), op)
	require.NoError(t, err)

	_, err = f.service.Start(context.Background(), task.ID(), op)
	assert.ErrorIs(t, err, model.ErrUnknownTaskType)
}

// stalledTaskRepository blocks reads until the bounded call context expires.
type stalledTaskRepository struct {
	repository.TaskInstanceRepository
}

func (r *stalledTaskRepository) FindByID(ctx context.Context, id model.TaskInstanceID) (*instance.TaskInstance, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHungTaskStoreSurfacesDependencyUnavailable(t *testing.T) {
	f := newWorkflowFixture(t)
	op := actor(t, "op-1")

	cat, err := catalog.LoadDefault()
	require.NoError(t, err)
	f.service = NewWorkflowService(
		cat, &stalledTaskRepository{f.tasks}, f.execs, f.sessions,
		NewValidationService(), f.locks,
		WorkflowServiceConfig{DependencyTimeout: 50 * time.Millisecond},
		logger.Nop(),
	)

	start := time.Now()
	_, err = f.service.Start(context.Background(), model.NewTaskInstanceID(), op)
	assert.ErrorIs(t, err, model.ErrDependencyUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	_, err = f.service.GetTask(context.Background(), model.NewTaskInstanceID())
	assert.ErrorIs(t, err, model.ErrDependencyUnavailable)
}

func TestAssignConcurrentClaimsSingleWinner(t *testing.T) {
	f := newWorkflowFixture(t)

	task, err := instance.New(model.TaskTypeRefill, "VM-042/B3")
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, a := range []model.ActorID{actor(t, "op-1"), actor(t, "op-2")} {
		wg.Add(1)
		go func(a model.ActorID) {
			defer wg.Done()
			_, err := f.service.Assign(context.Background(), task.ID(), a)
			errs <- err
		}(a)
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, model.ErrAlreadyAssigned)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
}
