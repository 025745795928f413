package dispatch

import "github.com/vhm24/taskflow/internal/domain/model"

// ActionKind enumerates the inbound user actions the chat transport can
// deliver
type ActionKind string

const (
	// ActionStart begins or resumes an assigned task
	ActionStart ActionKind = "start"
	// ActionSubmit submits field values for the current step
	ActionSubmit ActionKind = "submit"
	// ActionCancel cancels the actor's active task
	ActionCancel ActionKind = "cancel"
	// ActionStatus re-renders the current step
	ActionStatus ActionKind = "status"
	// ActionResubmit corrects an already-completed step
	ActionResubmit ActionKind = "resubmit"
)

// Action is one inbound user interaction, already decoded by the chat
// transport. Photo fields arrive as opaque storage references; the
// transport resolves uploads before the action reaches the engine. The
// transport also resolves the actor's role from its user directory.
type Action struct {
	Kind      ActionKind
	Role      model.Role
	TaskID    string
	StepOrder int
	Fields    map[string]string
	Reason    string
}
