package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/vhm24/taskflow/internal/application/service"
	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/pkg/logger"
)

// Dispatcher translates inbound user actions into workflow operations and
// renders the next prompt. It holds no business logic of its own; every
// failure kind coming back from the engine is turned into user-facing
// guidance with the current step re-displayed.
type Dispatcher struct {
	workflow    service.WorkflowService
	adminActors map[string]bool
	log         logger.Logger
}

// NewDispatcher creates a dispatcher. adminActorIDs come from startup
// configuration and may always cancel any task.
func NewDispatcher(workflow service.WorkflowService, adminActorIDs []string, log logger.Logger) *Dispatcher {
	admins := make(map[string]bool, len(adminActorIDs))
	for _, id := range adminActorIDs {
		admins[id] = true
	}
	return &Dispatcher{workflow: workflow, adminActors: admins, log: log}
}

// OnUserAction processes one inbound action for an actor and returns the
// rendered reply. The transport delivers one action at a time per actor;
// cross-actor concurrency is serialized further down by the per-actor
// exclusion scope.
func (d *Dispatcher) OnUserAction(ctx context.Context, actorID model.ActorID, action Action) Prompt {
	switch action.Kind {
	case ActionStart:
		return d.handleStart(ctx, actorID, action)
	case ActionSubmit:
		return d.handleSubmit(ctx, actorID, action)
	case ActionCancel:
		return d.handleCancel(ctx, actorID, action)
	case ActionStatus:
		return d.handleStatus(ctx, actorID)
	case ActionResubmit:
		return d.handleResubmit(ctx, actorID, action)
	default:
		return Prompt{Text: "Unknown action. Send status to see your current step."}
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, actorID model.ActorID, action Action) Prompt {
	taskID, err := model.NewTaskInstanceIDFromString(action.TaskID)
	if err != nil {
		return d.errorPrompt(ctx, actorID, model.ErrNotFound)
	}

	task, err := d.workflow.GetTask(ctx, taskID)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}
	if !Permits(action.Role, task.TaskType()) {
		return d.errorPrompt(ctx, actorID, model.ErrRoleNotPermitted)
	}

	result, err := d.workflow.Start(ctx, taskID, actorID)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}
	return renderStep(result.Task, result.Step)
}

func (d *Dispatcher) handleSubmit(ctx context.Context, actorID model.ActorID, action Action) Prompt {
	taskID, err := d.resolveTaskID(ctx, actorID, action)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}

	result, err := d.workflow.SubmitStep(ctx, taskID, actorID, action.StepOrder, action.Fields)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}
	if result.Completed {
		return renderCompleted(result.Task)
	}
	prompt := renderStep(result.Task, result.NextStep)
	if result.Replayed {
		prompt.Text = "Already recorded.\n" + prompt.Text
	}
	return prompt
}

func (d *Dispatcher) handleCancel(ctx context.Context, actorID model.ActorID, action Action) Prompt {
	taskID, err := d.resolveTaskID(ctx, actorID, action)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}

	if action.TaskID != "" && (MayCancelAny(action.Role) || d.adminActors[actorID.String()]) {
		if err := d.workflow.ForceCancel(ctx, taskID, action.Reason); err != nil {
			return d.errorPrompt(ctx, actorID, err)
		}
	} else if err := d.workflow.Cancel(ctx, taskID, actorID, action.Reason); err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}

	task, err := d.workflow.GetTask(ctx, taskID)
	if err != nil {
		return Prompt{Text: "Task cancelled.", Terminal: true}
	}
	return renderCancelled(task, action.Reason)
}

func (d *Dispatcher) handleStatus(ctx context.Context, actorID model.ActorID) Prompt {
	active, err := d.workflow.ActiveTask(ctx, actorID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Prompt{Text: "No active task. Start an assigned task to begin."}
		}
		return Prompt{Text: guidance(err)}
	}
	if active.Step == nil {
		return Prompt{Text: fmt.Sprintf("Task %s is %s.", active.Task.ID(), active.Task.Status())}
	}
	return renderStep(active.Task, active.Step)
}

func (d *Dispatcher) handleResubmit(ctx context.Context, actorID model.ActorID, action Action) Prompt {
	if action.Role != model.RoleManager && !d.adminActors[actorID.String()] {
		return Prompt{Text: guidance(model.ErrRoleNotPermitted)}
	}
	taskID, err := model.NewTaskInstanceIDFromString(action.TaskID)
	if err != nil {
		return d.errorPrompt(ctx, actorID, model.ErrNotFound)
	}
	execution, err := d.workflow.SupersedeStep(ctx, taskID, actorID, action.StepOrder, action.Fields)
	if err != nil {
		return d.errorPrompt(ctx, actorID, err)
	}
	return Prompt{Text: fmt.Sprintf("Step %d corrected. Record %s supersedes the prior capture.", execution.StepOrder(), execution.ID())}
}

// resolveTaskID uses the action's explicit task reference when present and
// falls back to the actor's active session
func (d *Dispatcher) resolveTaskID(ctx context.Context, actorID model.ActorID, action Action) (model.TaskInstanceID, error) {
	if action.TaskID != "" {
		return model.NewTaskInstanceIDFromString(action.TaskID)
	}
	active, err := d.workflow.ActiveTask(ctx, actorID)
	if err != nil {
		return model.TaskInstanceID{}, err
	}
	return active.Task.ID(), nil
}

// errorPrompt renders guidance for a failure and re-displays the current
// step when the actor still has one
func (d *Dispatcher) errorPrompt(ctx context.Context, actorID model.ActorID, err error) Prompt {
	d.log.Debug("action rejected", "actor", actorID.String(), "error", err)

	text := guidance(err)
	var vErr model.ValidationError
	if errors.As(err, &vErr) {
		text = fmt.Sprintf("Invalid %s: %s.", vErr.Field, vErr.Reason)
	}

	if active, activeErr := d.workflow.ActiveTask(ctx, actorID); activeErr == nil && active.Step != nil {
		step := renderStep(active.Task, active.Step)
		step.Text = text + "\n\n" + step.Text
		return step
	}
	return Prompt{Text: text}
}

func isKind(err error, kind model.WorkflowError) bool {
	return errors.Is(err, kind)
}
