package model

import "fmt"

// WorkflowError represents a domain-level workflow failure kind.
// The dispatcher maps each kind to user-facing guidance; none of them
// crash the process.
type WorkflowError struct {
	Code    string
	Message string
}

// Error implements the error interface
func (e WorkflowError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Workflow failure kinds
var (
	// ErrUnknownTaskType indicates a task type absent from the step catalog
	ErrUnknownTaskType = WorkflowError{
		Code:    "WF_UNKNOWN_TASK_TYPE",
		Message: "Task type is not registered in the step catalog",
	}

	// ErrNotFound indicates a missing task instance, step or session
	ErrNotFound = WorkflowError{
		Code:    "WF_NOT_FOUND",
		Message: "Referenced record was not found",
	}

	// ErrAlreadyAssigned indicates assignment of a task that left CREATED
	ErrAlreadyAssigned = WorkflowError{
		Code:    "WF_ALREADY_ASSIGNED",
		Message: "Task instance has already been assigned",
	}

	// ErrNotAssignedToActor indicates an actor/task assignment mismatch
	ErrNotAssignedToActor = WorkflowError{
		Code:    "WF_NOT_ASSIGNED_TO_ACTOR",
		Message: "Task instance is not assigned to this actor",
	}

	// ErrActorBusy indicates the actor already has an active session
	ErrActorBusy = WorkflowError{
		Code:    "WF_ACTOR_BUSY",
		Message: "Actor already has an active task in progress",
	}

	// ErrStepOutOfOrder indicates a submission for a step other than the current one
	ErrStepOutOfOrder = WorkflowError{
		Code:    "WF_STEP_OUT_OF_ORDER",
		Message: "Step submission does not match the current step",
	}

	// ErrConflictingResubmission indicates a replay with different field values
	ErrConflictingResubmission = WorkflowError{
		Code:    "WF_CONFLICTING_RESUBMISSION",
		Message: "Step was already completed with different values",
	}

	// ErrTaskAlreadyTerminal indicates an operation on a COMPLETED or CANCELLED task
	ErrTaskAlreadyTerminal = WorkflowError{
		Code:    "WF_TASK_TERMINAL",
		Message: "Task instance is already in a terminal state",
	}

	// ErrDependencyUnavailable indicates an external collaborator timeout or
	// outage; the operation is not assumed to have applied and is safe to retry
	ErrDependencyUnavailable = WorkflowError{
		Code:    "WF_DEPENDENCY_UNAVAILABLE",
		Message: "External dependency did not respond in time",
	}

	// ErrRoleNotPermitted indicates the actor's role may not operate on the task type
	ErrRoleNotPermitted = WorkflowError{
		Code:    "WF_ROLE_NOT_PERMITTED",
		Message: "Actor role is not permitted to execute this task type",
	}
)

// ValidationError reports the first failing field of a step submission.
// State is left unchanged; the same step may be retried.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("[WF_VALIDATION_FAILED] field %q: %s", e.Field, e.Reason)
}
