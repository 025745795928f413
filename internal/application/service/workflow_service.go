package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/catalog"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/domain/model/session"
	"github.com/vhm24/taskflow/internal/domain/repository"
	"github.com/vhm24/taskflow/pkg/logger"
)

// WorkflowService drives task instances through their lifecycle. All
// mutating operations for one actor run inside the shared per-actor
// exclusion scope; each transition is persisted as one atomic write.
type WorkflowService interface {
	// Assign transitions CREATED -> ASSIGNED
	Assign(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID) (*instance.TaskInstance, error)

	// Start transitions ASSIGNED -> IN_PROGRESS, opening the actor's session.
	// A task reverted by idle timeout resumes at its persisted step.
	Start(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID) (*StartResult, error)

	// SubmitStep validates and captures the current step. Replaying an
	// already-completed step with identical values succeeds idempotently.
	SubmitStep(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, stepOrder int, raw map[string]string) (*SubmitResult, error)

	// Cancel transitions any non-terminal state to CANCELLED for the
	// assigned actor and closes the session
	Cancel(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, reason string) error

	// ForceCancel cancels regardless of assignment; used by managers and
	// configured admin actors
	ForceCancel(ctx context.Context, taskID model.TaskInstanceID, reason string) error

	// SupersedeStep captures a correcting record for an already-completed
	// step without rewinding progress
	SupersedeStep(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, stepOrder int, raw map[string]string) (*instance.StepExecution, error)

	// RevertIdle reverts an idle-expired session's task to ASSIGNED,
	// retaining captured progress. Called by the sweep service.
	RevertIdle(ctx context.Context, actorID model.ActorID, idleTimeout time.Duration) (bool, error)

	// ActiveTask resolves the actor's session to its task and pending step
	// template; model.ErrNotFound when no session is open
	ActiveTask(ctx context.Context, actorID model.ActorID) (*StartResult, error)

	// GetTask retrieves a task instance without mutating anything
	GetTask(ctx context.Context, taskID model.TaskInstanceID) (*instance.TaskInstance, error)
}

// StartResult carries the task and the step awaiting submission
type StartResult struct {
	Task *instance.TaskInstance
	Step *catalog.StepTemplate
}

// SubmitResult carries the outcome of a step submission
type SubmitResult struct {
	Task      *instance.TaskInstance
	Execution *instance.StepExecution
	Replayed  bool
	Completed bool
	NextStep  *catalog.StepTemplate
}

// WorkflowServiceConfig holds tunables for the workflow service
type WorkflowServiceConfig struct {
	DependencyTimeout time.Duration // Bounded wait on persistence calls
}

// DefaultWorkflowServiceConfig returns default configuration
func DefaultWorkflowServiceConfig() WorkflowServiceConfig {
	return WorkflowServiceConfig{DependencyTimeout: 5 * time.Second}
}

// WorkflowServiceImpl implements WorkflowService
type WorkflowServiceImpl struct {
	catalog    *catalog.Catalog
	tasks      repository.TaskInstanceRepository
	executions repository.StepExecutionRepository
	sessions   repository.SessionRepository
	validator  *ValidationService
	actorLocks *ActorLockMap
	config     WorkflowServiceConfig
	log        logger.Logger
}

// NewWorkflowService creates a workflow service
func NewWorkflowService(
	cat *catalog.Catalog,
	tasks repository.TaskInstanceRepository,
	executions repository.StepExecutionRepository,
	sessions repository.SessionRepository,
	validator *ValidationService,
	actorLocks *ActorLockMap,
	config WorkflowServiceConfig,
	log logger.Logger,
) WorkflowService {
	if config.DependencyTimeout <= 0 {
		config.DependencyTimeout = DefaultWorkflowServiceConfig().DependencyTimeout
	}
	return &WorkflowServiceImpl{
		catalog:    cat,
		tasks:      tasks,
		executions: executions,
		sessions:   sessions,
		validator:  validator,
		actorLocks: actorLocks,
		config:     config,
		log:        log,
	}
}

// depCtx bounds a persistence call; timeouts surface as DependencyUnavailable
func (s *WorkflowServiceImpl) depCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.DependencyTimeout)
}

// depErr translates collaborator timeouts into the retryable failure kind
func depErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrDependencyUnavailable, err)
	}
	return err
}

func (s *WorkflowServiceImpl) loadTask(ctx context.Context, taskID model.TaskInstanceID) (*instance.TaskInstance, error) {
	dctx, cancel := s.depCtx(ctx)
	defer cancel()
	task, err := s.tasks.FindByID(dctx, taskID)
	if err != nil {
		return nil, depErr(err)
	}
	return task, nil
}

func (s *WorkflowServiceImpl) saveTask(ctx context.Context, task *instance.TaskInstance) error {
	dctx, cancel := s.depCtx(ctx)
	defer cancel()
	return depErr(s.tasks.Save(dctx, task))
}

// Assign transitions CREATED -> ASSIGNED. Serialized per task so two
// concurrent claims cannot both observe CREATED; the loser fails
// AlreadyAssigned.
func (s *WorkflowServiceImpl) Assign(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID) (*instance.TaskInstance, error) {
	unlock := s.actorLocks.LockTask(taskID)
	defer unlock()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := task.Assign(actorID); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Info("task assigned", "task", taskID.String(), "actor", actorID.String())
	return task, nil
}

// Start transitions ASSIGNED -> IN_PROGRESS and opens the actor's session
func (s *WorkflowServiceImpl) Start(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID) (*StartResult, error) {
	unlock := s.actorLocks.Lock(actorID)
	defer unlock()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.StepCount(task.TaskType()); err != nil {
		return nil, err
	}

	// Open the session before mutating the task so a busy actor leaves the
	// instance untouched.
	dctx, cancel := s.depCtx(ctx)
	err = s.sessions.Open(dctx, session.New(actorID, taskID))
	cancel()
	if err != nil {
		return nil, depErr(err)
	}

	if err := task.Start(actorID); err != nil {
		s.closeSessionQuiet(ctx, actorID)
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		s.closeSessionQuiet(ctx, actorID)
		return nil, err
	}

	step, err := s.catalog.Step(task.TaskType(), task.CurrentStepOrder())
	if err != nil {
		return nil, err
	}
	s.log.Info("task started", "task", taskID.String(), "actor", actorID.String(), "step", step.Name())
	return &StartResult{Task: task, Step: step}, nil
}

// SubmitStep validates and captures a step, advancing or completing the task
func (s *WorkflowServiceImpl) SubmitStep(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, stepOrder int, raw map[string]string) (*SubmitResult, error) {
	unlock := s.actorLocks.Lock(actorID)
	defer unlock()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedActorID() == nil || !task.AssignedActorID().Equals(actorID) {
		return nil, model.ErrNotAssignedToActor
	}
	if task.Status() == model.StatusCancelled {
		return nil, model.ErrTaskAlreadyTerminal
	}

	total, err := s.catalog.StepCount(task.TaskType())
	if err != nil {
		return nil, err
	}

	// Replay of an already-captured step: idempotent when values match.
	// This includes a retried final step on a task that just completed.
	if stepOrder >= 1 && (stepOrder < task.CurrentStepOrder() ||
		(task.Status() == model.StatusCompleted && stepOrder <= task.CurrentStepOrder())) {
		return s.replayStep(ctx, task, stepOrder, raw)
	}
	if task.Status() == model.StatusCompleted {
		return nil, model.ErrTaskAlreadyTerminal
	}

	if task.Status() != model.StatusInProgress || stepOrder != task.CurrentStepOrder() {
		return nil, model.ErrStepOutOfOrder
	}

	step, err := s.catalog.Step(task.TaskType(), stepOrder)
	if err != nil {
		return nil, err
	}

	captured, err := s.validator.Validate(step, raw)
	if err != nil {
		return nil, err
	}

	execution, err := s.captureStep(ctx, task, step, captured, actorID)
	if err != nil {
		return nil, err
	}

	if err := task.Advance(total); err != nil {
		return nil, err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	result := &SubmitResult{Task: task, Execution: execution}
	if task.Status() == model.StatusCompleted {
		result.Completed = true
		s.closeSessionQuiet(ctx, actorID)
		s.log.Info("task completed", "task", taskID.String(), "actor", actorID.String())
	} else {
		dctx, cancel := s.depCtx(ctx)
		if err := s.sessions.Touch(dctx, actorID, time.Now().UTC()); err != nil {
			s.log.Warn("session touch failed", "actor", actorID.String(), "error", err)
		}
		cancel()
		next, err := s.catalog.Step(task.TaskType(), task.CurrentStepOrder())
		if err != nil {
			return nil, err
		}
		result.NextStep = next
		s.log.Info("step captured", "task", taskID.String(), "step", step.Name(), "next", next.Name())
	}
	return result, nil
}

// captureStep persists the execution record, healing the case where a prior
// attempt wrote the record but the task save never applied.
func (s *WorkflowServiceImpl) captureStep(ctx context.Context, task *instance.TaskInstance, step *catalog.StepTemplate, captured model.FieldValues, actorID model.ActorID) (*instance.StepExecution, error) {
	dctx, cancel := s.depCtx(ctx)
	prior, err := s.executions.FindLatestByStep(dctx, task.ID(), step.Order())
	cancel()
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, depErr(err)
	}

	if prior != nil {
		if prior.CapturedFields().Equals(captured) {
			return prior, nil
		}
		superseding, err := prior.Supersede(captured, actorID)
		if err != nil {
			return nil, err
		}
		dctx, cancel = s.depCtx(ctx)
		err = s.executions.Create(dctx, superseding)
		cancel()
		if err != nil {
			return nil, depErr(err)
		}
		return superseding, nil
	}

	execution, err := instance.NewStepExecution(task.ID(), step.ID(), step.Order(), captured, actorID)
	if err != nil {
		return nil, err
	}
	dctx, cancel = s.depCtx(ctx)
	err = s.executions.Create(dctx, execution)
	cancel()
	if err != nil {
		return nil, depErr(err)
	}
	return execution, nil
}

// replayStep handles resubmission of a completed step: identical values
// return the stored record, mismatched values fail ConflictingResubmission.
func (s *WorkflowServiceImpl) replayStep(ctx context.Context, task *instance.TaskInstance, stepOrder int, raw map[string]string) (*SubmitResult, error) {
	step, err := s.catalog.Step(task.TaskType(), stepOrder)
	if err != nil {
		return nil, err
	}
	captured, err := s.validator.Validate(step, raw)
	if err != nil {
		return nil, err
	}

	dctx, cancel := s.depCtx(ctx)
	prior, err := s.executions.FindLatestByStep(dctx, task.ID(), stepOrder)
	cancel()
	if err != nil {
		return nil, depErr(err)
	}
	if !prior.CapturedFields().Equals(captured) {
		return nil, model.ErrConflictingResubmission
	}

	result := &SubmitResult{Task: task, Execution: prior, Replayed: true}
	if task.Status() == model.StatusInProgress {
		next, err := s.catalog.Step(task.TaskType(), task.CurrentStepOrder())
		if err != nil {
			return nil, err
		}
		result.NextStep = next
	}
	result.Completed = task.Status() == model.StatusCompleted
	return result, nil
}

// SupersedeStep records a correction for an already-completed step
func (s *WorkflowServiceImpl) SupersedeStep(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, stepOrder int, raw map[string]string) (*instance.StepExecution, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status() == model.StatusCancelled {
		return nil, model.ErrTaskAlreadyTerminal
	}
	if stepOrder < 1 || (stepOrder >= task.CurrentStepOrder() && task.Status() != model.StatusCompleted) {
		return nil, model.ErrStepOutOfOrder
	}

	step, err := s.catalog.Step(task.TaskType(), stepOrder)
	if err != nil {
		return nil, err
	}
	captured, err := s.validator.Validate(step, raw)
	if err != nil {
		return nil, err
	}

	dctx, cancel := s.depCtx(ctx)
	prior, err := s.executions.FindLatestByStep(dctx, taskID, stepOrder)
	cancel()
	if err != nil {
		return nil, depErr(err)
	}
	superseding, err := prior.Supersede(captured, actorID)
	if err != nil {
		return nil, err
	}
	dctx, cancel = s.depCtx(ctx)
	err = s.executions.Create(dctx, superseding)
	cancel()
	if err != nil {
		return nil, depErr(err)
	}
	s.log.Info("step superseded", "task", taskID.String(), "step", step.Name(), "actor", actorID.String())
	return superseding, nil
}

// Cancel cancels the actor's own task
func (s *WorkflowServiceImpl) Cancel(ctx context.Context, taskID model.TaskInstanceID, actorID model.ActorID, reason string) error {
	unlock := s.actorLocks.Lock(actorID)
	defer unlock()

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.AssignedActorID() != nil && !task.AssignedActorID().Equals(actorID) {
		return model.ErrNotAssignedToActor
	}
	return s.cancelLocked(ctx, task, reason)
}

// ForceCancel cancels regardless of assignment
func (s *WorkflowServiceImpl) ForceCancel(ctx context.Context, taskID model.TaskInstanceID, reason string) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if actor := task.AssignedActorID(); actor != nil {
		unlock := s.actorLocks.Lock(*actor)
		defer unlock()
		// Reload inside the exclusion scope; a concurrent submit may have
		// completed the task meanwhile.
		task, err = s.loadTask(ctx, taskID)
		if err != nil {
			return err
		}
	}
	return s.cancelLocked(ctx, task, reason)
}

func (s *WorkflowServiceImpl) cancelLocked(ctx context.Context, task *instance.TaskInstance, reason string) error {
	if err := task.Cancel(reason); err != nil {
		return err
	}
	if err := s.saveTask(ctx, task); err != nil {
		return err
	}
	if actor := task.AssignedActorID(); actor != nil {
		s.closeSessionQuiet(ctx, *actor)
	}
	s.log.Info("task cancelled", "task", task.ID().String(), "reason", reason)
	return nil
}

// RevertIdle reverts the actor's task to ASSIGNED when the session has
// genuinely expired. Returns false when the session was touched or closed
// since the sweep observed it.
func (s *WorkflowServiceImpl) RevertIdle(ctx context.Context, actorID model.ActorID, idleTimeout time.Duration) (bool, error) {
	unlock := s.actorLocks.Lock(actorID)
	defer unlock()

	dctx, cancel := s.depCtx(ctx)
	sess, err := s.sessions.Find(dctx, actorID)
	cancel()
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, depErr(err)
	}
	if !sess.IsIdleExpired(time.Now().UTC(), idleTimeout) {
		return false, nil
	}

	task, err := s.loadTask(ctx, sess.TaskInstanceID())
	if err != nil {
		return false, err
	}
	if err := task.RevertIdle(); err != nil {
		// Task reached a terminal state in another scope; just drop the
		// stale session.
		s.closeSessionQuiet(ctx, actorID)
		return false, nil
	}
	if err := s.saveTask(ctx, task); err != nil {
		return false, err
	}
	s.closeSessionQuiet(ctx, actorID)
	s.log.Info("idle session reverted", "actor", actorID.String(), "task", task.ID().String(), "step", task.CurrentStepOrder())
	return true, nil
}

// ActiveTask resolves the actor's open session for status rendering
func (s *WorkflowServiceImpl) ActiveTask(ctx context.Context, actorID model.ActorID) (*StartResult, error) {
	dctx, cancel := s.depCtx(ctx)
	sess, err := s.sessions.Find(dctx, actorID)
	cancel()
	if err != nil {
		return nil, depErr(err)
	}
	task, err := s.loadTask(ctx, sess.TaskInstanceID())
	if err != nil {
		return nil, err
	}
	var step *catalog.StepTemplate
	if task.Status() == model.StatusInProgress {
		step, err = s.catalog.Step(task.TaskType(), task.CurrentStepOrder())
		if err != nil {
			return nil, err
		}
	}
	return &StartResult{Task: task, Step: step}, nil
}

// GetTask retrieves a task instance for rendering and capability checks
func (s *WorkflowServiceImpl) GetTask(ctx context.Context, taskID model.TaskInstanceID) (*instance.TaskInstance, error) {
	return s.loadTask(ctx, taskID)
}

func (s *WorkflowServiceImpl) closeSessionQuiet(ctx context.Context, actorID model.ActorID) {
	dctx, cancel := s.depCtx(ctx)
	defer cancel()
	if err := s.sessions.Close(dctx, actorID); err != nil {
		s.log.Warn("session close failed", "actor", actorID.String(), "error", err)
	}
}
